package main

import (
	"github.com/urfave/cli/v2"

	"github.com/and161185/grocery-keeper/internal/app"
	"github.com/and161185/grocery-keeper/internal/model"
)

func optional(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

func authCommands() []*cli.Command {
	return []*cli.Command{
		versionCommand(),
		{
			Name:  "register",
			Usage: "create an account and log in",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name"},
				&cli.StringFlag{Name: "email"},
				&cli.StringFlag{Name: "password", EnvVars: []string{"GROCERY_PASSWORD"}},
			},
			Action: withApp(func(c *cli.Context, a *app.App) error {
				u, err := a.Auth.Register(c.Context, c.String("name"), c.String("email"), c.String("password"))
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, u)
			}),
		},
		{
			Name:  "login",
			Usage: "log in and remember the session",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "email"},
				&cli.StringFlag{Name: "password", EnvVars: []string{"GROCERY_PASSWORD"}},
			},
			Action: withApp(func(c *cli.Context, a *app.App) error {
				u, err := a.Auth.Login(c.Context, c.String("email"), c.String("password"))
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, u)
			}),
		},
		{
			Name:  "logout",
			Usage: "forget the session",
			Action: withApp(func(c *cli.Context, a *app.App) error {
				if err := a.Auth.Logout(c.Context); err != nil {
					return err
				}
				return printJSON(c.App.Writer, map[string]bool{"logged_in": false})
			}),
		},
		{
			Name:  "whoami",
			Usage: "show the logged in user",
			Action: withApp(func(c *cli.Context, a *app.App) error {
				u, err := a.Auth.CurrentUser(c.Context)
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, u)
			}),
		},
		{
			Name:  "status",
			Usage: "report whether a session exists",
			Action: withApp(func(c *cli.Context, a *app.App) error {
				ok, err := a.Auth.LoggedIn(c.Context)
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, map[string]bool{"logged_in": ok})
			}),
		},
		{
			Name:  "forgot-password",
			Usage: "request a password reset link",
			Flags: []cli.Flag{&cli.StringFlag{Name: "email"}},
			Action: withApp(func(c *cli.Context, a *app.App) error {
				msg, err := a.Auth.ForgotPassword(c.Context, c.String("email"))
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, map[string]string{"message": msg})
			}),
		},
		{
			Name:  "reset-password",
			Usage: "set a new password with a reset token",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "token"},
				&cli.StringFlag{Name: "password", EnvVars: []string{"GROCERY_PASSWORD"}},
			},
			Action: withApp(func(c *cli.Context, a *app.App) error {
				msg, err := a.Auth.ResetPassword(c.Context, c.String("token"), c.String("password"))
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, map[string]string{"message": msg})
			}),
		},
		{
			Name:  "update-user",
			Usage: "change profile fields; only the given flags are sent",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name"},
				&cli.StringFlag{Name: "email"},
				&cli.StringFlag{Name: "picture", Usage: "profile picture URL"},
			},
			Action: withApp(func(c *cli.Context, a *app.App) error {
				u, err := a.Auth.UpdateUser(c.Context, model.UserPatch{
					Name:           optional(c, "name"),
					Email:          optional(c, "email"),
					ProfilePicture: optional(c, "picture"),
				})
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, u)
			}),
		},
	}
}
