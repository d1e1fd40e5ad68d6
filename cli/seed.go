package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"blogapi/auth"
	"blogapi/categories"
	"blogapi/database"
)

type CreateUserOptions struct {
	*RootOptions
	Name     string
	Email    string
	Password string
}

func NewCreateUserCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateUserOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Register a user and print a token for it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()
			if err := database.RunMigrations(db); err != nil {
				return err
			}

			tokens := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL)
			session, err := auth.NewAuthModule(db, tokens).Register(cmd.Context(), opts.Name, opts.Email, opts.Password)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s <%s> id=%s\ntoken: %s\n",
				session.User.Name, session.User.Email, session.User.ID, session.Token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password, at least 6 characters (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

type CreateCategoryOptions struct {
	*RootOptions
	Name        string
	Description string
}

func NewCreateCategoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateCategoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create-category",
		Short: "Add a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()
			if err := database.RunMigrations(db); err != nil {
				return err
			}

			category, err := categories.NewCategoryModule(db, nil).Create(cmd.Context(), opts.Name, opts.Description)
			if err != nil {
				return fmt.Errorf("create category: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "category %s id=%s slug=%s\n", category.Name, category.ID, category.Slug)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "category name (required)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "optional description")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
