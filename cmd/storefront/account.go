package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaarage/storefront/internal/domain"
)

func (c *cli) loginCmd() *cobra.Command {
	var form domain.LoginForm
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in; the guest cart is replaced by the account cart",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			user, err := c.app.Session.Login(cmd.Context(), form)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s.\n", displayName(user))
			return nil
		}),
	}
	cmd.Flags().StringVar(&form.Email, "email", "", "account email")
	cmd.Flags().StringVar(&form.Password, "password", "", "account password")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var form domain.RegisterForm
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			user, err := c.app.Session.Register(cmd.Context(), form)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created. Welcome, %s.\n", displayName(user))
			return nil
		}),
	}
	flags := cmd.Flags()
	flags.StringVar(&form.FullName, "name", "", "full name")
	flags.StringVar(&form.Email, "email", "", "email")
	flags.StringVar(&form.Phone, "phone", "", "phone (05, 06 or 07 followed by 8 digits)")
	flags.StringVar(&form.Address, "address", "", "delivery address")
	flags.StringVar(&form.Password, "password", "", "password")
	flags.StringVar(&form.ConfirmPassword, "confirm", "", "password confirmation")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and return to the guest cart",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			c.app.Session.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		}),
	}
}

func (c *cli) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			user, err := c.app.Session.Profile(cmd.Context())
			if err != nil {
				return err
			}
			printUser(cmd, user)
			return nil
		}),
	}

	var name, email, phone, address string
	update := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields; only the given flags are sent",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			var change domain.ProfileUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				change.FullName = &name
			}
			if flags.Changed("email") {
				change.Email = &email
			}
			if flags.Changed("phone") {
				change.Phone = &phone
			}
			if flags.Changed("address") {
				change.Address = &address
			}

			user, err := c.app.Session.UpdateProfile(cmd.Context(), change)
			if err != nil {
				return err
			}
			printUser(cmd, user)
			return nil
		}),
	}
	update.Flags().StringVar(&name, "name", "", "full name")
	update.Flags().StringVar(&email, "email", "", "email")
	update.Flags().StringVar(&phone, "phone", "", "phone")
	update.Flags().StringVar(&address, "address", "", "address")

	cmd.AddCommand(update)
	return cmd
}

func (c *cli) passwordCmd() *cobra.Command {
	var change domain.PasswordChange
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the account password",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Session.ChangePassword(cmd.Context(), change); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password changed.")
			return nil
		}),
	}
	cmd.Flags().StringVar(&change.Current, "current", "", "current password")
	cmd.Flags().StringVar(&change.New, "new", "", "new password")
	cmd.Flags().StringVar(&change.Confirm, "confirm", "", "new password confirmation")
	return cmd
}

func (c *cli) ordersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List past orders",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, _ []string) error {
			orders, err := c.app.Session.Orders(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(orders) == 0 {
				fmt.Fprintln(out, "No orders yet.")
				return nil
			}
			for _, o := range orders {
				fmt.Fprintf(out, "#%d  %s  %s  %s\n",
					o.ID, o.CreatedAt.Format("2006-01-02 15:04"), o.Status.Label(), o.Total.StringFixed(2))
				for _, d := range o.Details {
					fmt.Fprintf(out, "    %d x %s  %s\n", d.Quantity, d.ProductName, d.Price.StringFixed(2))
				}
			}
			return nil
		}),
	}
}

func printUser(cmd *cobra.Command, user domain.User) {
	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintf(tw, "Name\t%s\n", user.FullName)
	fmt.Fprintf(tw, "Email\t%s\n", user.Email)
	fmt.Fprintf(tw, "Phone\t%s\n", user.Phone)
	fmt.Fprintf(tw, "Address\t%s\n", user.Address)
	_ = tw.Flush()
}

func displayName(user domain.User) string {
	if user.FullName != "" {
		return user.FullName
	}
	return user.Email
}
