package db

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/donhauser001/dongui/internal/models"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed seed.yaml
var seedYAML []byte

// SeedData describes the bootstrap roles, permissions and grants.
type SeedData struct {
	Roles       []SeedRole          `yaml:"roles"`
	Permissions []SeedPermission    `yaml:"permissions"`
	Grants      map[string][]string `yaml:"grants"`
}

// SeedRole is a system role created at bootstrap.
type SeedRole struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// SeedPermission is a "resource:action" permission created at bootstrap.
type SeedPermission struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// LoadSeed parses the embedded seed definition.
func LoadSeed() (*SeedData, error) {
	return ParseSeed(seedYAML)
}

// ParseSeed parses a seed definition and checks that every grant refers to a
// declared role and permission.
func ParseSeed(data []byte) (*SeedData, error) {
	var seed SeedData
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	roles := make(map[string]bool, len(seed.Roles))
	for _, r := range seed.Roles {
		if r.Key == "" {
			return nil, errors.New("parse seed: role without key")
		}
		roles[r.Key] = true
	}
	perms := make(map[string]bool, len(seed.Permissions))
	for _, p := range seed.Permissions {
		if _, _, err := splitPermissionKey(p.Key); err != nil {
			return nil, fmt.Errorf("parse seed: %w", err)
		}
		perms[p.Key] = true
	}
	for roleKey, keys := range seed.Grants {
		if !roles[roleKey] {
			return nil, fmt.Errorf("parse seed: grants for undeclared role %q", roleKey)
		}
		for _, k := range keys {
			if k != "*" && !perms[k] {
				return nil, fmt.Errorf("parse seed: role %q grants undeclared permission %q", roleKey, k)
			}
		}
	}
	return &seed, nil
}

func splitPermissionKey(key string) (resource, action string, err error) {
	resource, action, ok := strings.Cut(key, ":")
	if !ok || resource == "" || action == "" {
		return "", "", fmt.Errorf("permission key %q is not in resource:action form", key)
	}
	return resource, action, nil
}

// Seed creates the missing system roles and upserts the permissions. Grants
// are written only for roles created by this call; an existing role keeps
// whatever grant set was last assigned to it.
func Seed(db *gorm.DB, seed *SeedData) error {
	return db.Transaction(func(tx *gorm.DB) error {
		roleIDs := make(map[string]models.Role, len(seed.Roles))
		created := make(map[string]bool, len(seed.Roles))
		for _, sr := range seed.Roles {
			var role models.Role
			err := tx.Where(&models.Role{Key: sr.Key}).First(&role).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				role = models.Role{Key: sr.Key, Name: sr.Name, Description: sr.Description, IsSystem: true}
				if err := tx.Create(&role).Error; err != nil {
					return fmt.Errorf("create role %s: %w", sr.Key, err)
				}
				created[sr.Key] = true
				slog.Info("Created system role", "key", sr.Key)
			} else if err != nil {
				return fmt.Errorf("find role %s: %w", sr.Key, err)
			}
			roleIDs[sr.Key] = role
		}

		permsByKey := make(map[string]models.Permission, len(seed.Permissions))
		for _, sp := range seed.Permissions {
			resource, action, _ := splitPermissionKey(sp.Key)
			var perm models.Permission
			err := tx.Where(&models.Permission{Key: sp.Key}).First(&perm).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				perm = models.Permission{Key: sp.Key, Name: sp.Name, Resource: resource, Action: action, Description: sp.Description}
				if err := tx.Create(&perm).Error; err != nil {
					return fmt.Errorf("create permission %s: %w", sp.Key, err)
				}
			case err != nil:
				return fmt.Errorf("find permission %s: %w", sp.Key, err)
			default:
				perm.Name, perm.Resource, perm.Action, perm.Description = sp.Name, resource, action, sp.Description
				if err := tx.Save(&perm).Error; err != nil {
					return fmt.Errorf("update permission %s: %w", sp.Key, err)
				}
			}
			permsByKey[sp.Key] = perm
		}
		slog.Info("Seeded permissions", "count", len(permsByKey))

		for roleKey, keys := range seed.Grants {
			if !created[roleKey] {
				continue
			}
			role := roleIDs[roleKey]
			var grants []models.RolePermission
			for _, k := range expandGrantKeys(keys, seed.Permissions) {
				grants = append(grants, models.RolePermission{RoleID: role.ID, PermissionID: permsByKey[k].ID})
			}
			if len(grants) == 0 {
				continue
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&grants).Error; err != nil {
				return fmt.Errorf("grant permissions to %s: %w", roleKey, err)
			}
			slog.Info("Seeded role grants", "role", roleKey, "count", len(grants))
		}
		return nil
	})
}

func expandGrantKeys(keys []string, perms []SeedPermission) []string {
	for _, k := range keys {
		if k == "*" {
			all := make([]string, 0, len(perms))
			for _, p := range perms {
				all = append(all, p.Key)
			}
			return all
		}
	}
	return keys
}
