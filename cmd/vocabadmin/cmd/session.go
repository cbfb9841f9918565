package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jmcleod/vocabadmin/auth"
	"github.com/jmcleod/vocabadmin/session"
)

var (
	loginEmail string
	loginName  string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or change the stored administrator session",
	Long: `Commands that act on the durable session record directly. With
--store=redis they act as another participant: a running dashboard adopts
the change immediately.`,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, closeStore, err := commandStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		sess := store.Read(cmd.Context())
		if sess == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No administrator is signed in.")
			return nil
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	},
}

var sessionLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a session for an administrator",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, logger, closeStore, err := commandStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		name := loginName
		if name == "" {
			name = auth.DisplayName(loginEmail)
		}
		sess := session.Session{Name: name, Email: loginEmail}
		if err := auth.New(store, auth.WithLogger(logger)).Login(cmd.Context(), sess); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", sess.Email)
		return nil
	},
}

var sessionLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, logger, closeStore, err := commandStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		if err := auth.New(store, auth.WithLogger(logger)).Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

func commandStore(cmd *cobra.Command) (*session.Store, *slog.Logger, func() error, error) {
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, func() error { return nil }, err
	}
	store, closeStore, err := openStore(cmd.Context(), currentStoreConfig(), logger)
	return store, logger, closeStore, err
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionShowCmd, sessionLoginCmd, sessionLogoutCmd)
	sessionLoginCmd.Flags().StringVar(&loginEmail, "email", "", "Administrator email (required)")
	sessionLoginCmd.Flags().StringVar(&loginName, "name", "", "Display name (defaults to the email's local part)")
	_ = sessionLoginCmd.MarkFlagRequired("email")
}
