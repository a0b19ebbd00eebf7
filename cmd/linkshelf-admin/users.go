package main

import (
	"fmt"

	"github.com/dimitrije/linkshelf-api/internal/models"
	"github.com/dimitrije/linkshelf-api/internal/services"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var issueTokenName string

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token <email>",
	Short: "Print an access token for a user, creating the user if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := issueTokenName
		if name == "" {
			name = args[0]
		}
		user, err := services.NewUserService(app.db).FindOrCreate(cmd.Context(), args[0], name)
		if err != nil {
			return err
		}

		token, err := services.NewJWTService(app.cfg.JWTSecret, app.cfg.JWTAccessExpiry).Issue(user.ID, user.Email)
		if err != nil {
			return err
		}
		fmt.Printf("user:    %s\nexpires: %s\ntoken:   %s\n", user.ID, token.ExpiresAt.Format("2006-01-02 15:04:05"), token.Token)
		return nil
	},
}

var (
	shareAs   string
	shareRole string
)

var shareFolderCmd = &cobra.Command{
	Use:   "share-folder <folder-id> <email>",
	Short: "Grant a user access to a folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		folderID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid folder id: %w", err)
		}

		users := services.NewUserService(app.db)
		actor, err := users.GetByEmail(cmd.Context(), shareAs)
		if err != nil {
			return fmt.Errorf("acting user %q: %w", shareAs, err)
		}
		grantee, err := users.GetByEmail(cmd.Context(), args[1])
		if err != nil {
			return fmt.Errorf("grantee %q: %w", args[1], err)
		}

		collab, err := services.NewCollaboratorService(app.db, nil).
			ShareFolder(cmd.Context(), actor.ID, folderID, grantee.ID, shareRole)
		if err != nil {
			return err
		}
		fmt.Printf("Granted %s on folder %s to %s\n", collab.Role, folderID, grantee.Email)
		return nil
	},
}

func init() {
	issueTokenCmd.Flags().StringVar(&issueTokenName, "name", "", "display name for a newly created user")
	shareFolderCmd.Flags().StringVar(&shareAs, "as", "", "email of the folder owner or admin (required)")
	shareFolderCmd.Flags().StringVar(&shareRole, "role", models.RoleView, "VIEW, EDIT or ADMIN")
	_ = shareFolderCmd.MarkFlagRequired("as")
	rootCmd.AddCommand(issueTokenCmd, shareFolderCmd)
}
