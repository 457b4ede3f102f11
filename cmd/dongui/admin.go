package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/donhauser001/dongui/internal/db"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	adminEmail    string
	adminName     string
	adminPassword string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a super administrator",
	Long: `Create a user holding the super administrator role.

The password is read from the terminal unless --password is given.

Examples:
  dongui admin create --email admin@example.com --name Admin`,
	Args: cobra.NoArgs,
	RunE: runAdminCreate,
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email address")
	adminCreateCmd.Flags().StringVar(&adminName, "name", "Administrator", "Display name")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "Password (prompted when omitted)")
	_ = adminCreateCmd.MarkFlagRequired("email")

	adminCmd.AddCommand(adminCreateCmd)
}

func runAdminCreate(cmd *cobra.Command, args []string) error {
	password := adminPassword
	if password == "" {
		fmt.Print("Password: ")
		passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		password = string(passBytes)
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	database, cfg, err := openDatabase()
	if err != nil {
		return err
	}
	defer closeDatabase(database)

	user, err := db.CreateAdmin(database, cfg.Auth, adminEmail, adminName, password)
	if err != nil {
		return err
	}
	fmt.Printf("Created super administrator %s (%s)\n", user.Email, user.ID)
	return nil
}
