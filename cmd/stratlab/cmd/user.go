package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage API users",
	Long: `Create API users and issue bearer tokens for them. JWT_SECRET must be
the same value the server runs with.

Examples:
  stratlab user signup alice
  stratlab user login alice`,
}

var userSignupCmd = &cobra.Command{
	Use:   "signup USERNAME",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserSignup,
}

var userLoginCmd = &cobra.Command{
	Use:   "login USERNAME",
	Short: "Check a password and print a bearer token",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserLogin,
}

var userPassword string

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userSignupCmd, userLoginCmd)
	userCmd.PersistentFlags().StringVar(&userPassword, "password", "", "password (prompted when empty)")
}

func readPassword(cmd *cobra.Command) (string, error) {
	if userPassword != "" {
		return userPassword, nil
	}
	if v := os.Getenv("STRATLAB_PASSWORD"); v != "" {
		return v, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("no password: use --password or STRATLAB_PASSWORD")
	}
	return strings.TrimSpace(line), nil
}

func runUserSignup(cmd *cobra.Command, args []string) error {
	pw, err := readPassword(cmd)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	authSvc, err := a.auth()
	if err != nil {
		return err
	}
	if err := authSvc.Signup(commandContext(cmd), args[0], pw); err != nil {
		return err
	}
	printf(cmd, "Created user %q\n", args[0])
	return nil
}

func runUserLogin(cmd *cobra.Command, args []string) error {
	pw, err := readPassword(cmd)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	authSvc, err := a.auth()
	if err != nil {
		return err
	}
	token, err := authSvc.Login(commandContext(cmd), args[0], pw)
	if err != nil {
		return err
	}
	printf(cmd, "%s\n", token)
	return nil
}
