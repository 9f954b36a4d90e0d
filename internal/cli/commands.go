package cli

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/timmy/crafto/internal/domain"
	"github.com/timmy/crafto/internal/gateway"
	"github.com/timmy/crafto/internal/media"
	"github.com/timmy/crafto/internal/service"
)

func newLoginCmd() *cobra.Command {
	var in service.LoginInput

	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Log in with a username and one-time password",
		Example: `  crafto login --username alice --otp 123456`,
		Args:    cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			cred, err := e.app.Auth.Login(cmd.Context(), e.sess, in)
			if err != nil {
				return userError(err)
			}
			printf(cmd, "Logged in as %s\n", cred.Username)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&in.Username, "username", "u", "", "Username")
	cmd.Flags().StringVar(&in.OTP, "otp", "", "One-time password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("otp")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			if err := e.app.Auth.Logout(cmd.Context(), e.sess); err != nil {
				return err
			}
			printf(cmd, "Logged out\n")
			return nil
		}),
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			cred, ok := e.app.Auth.Current(cmd.Context(), e.sess)
			if !ok {
				printf(cmd, "Not logged in\n")
				return nil
			}
			printf(cmd, "%s\n", cred.Username)
			return nil
		}),
	}
}

func newQuotesCmd() *cobra.Command {
	var (
		search string
		pages  int
	)

	cmd := &cobra.Command{
		Use:   "quotes",
		Short: "List quotes, newest first",
		Example: `  # First page
  crafto quotes

  # Three pages, keeping quotes that mention "kind" in the text or author
  crafto quotes --pages 3 --search kind`,
		Args: cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			if pages < 1 {
				return errors.New("--pages must be at least 1")
			}
			feed := e.app.Workspaces.New().Feed

			if _, err := feed.Load(cmd.Context(), e.sess, pages); err != nil {
				return userError(err)
			}

			view := feed.View(search)
			if len(view.Quotes) == 0 {
				printf(cmd, "No quotes available.\n")
				return nil
			}
			for _, q := range view.Quotes {
				printQuote(cmd, q)
			}
			if view.CanLoadMore {
				printf(cmd, "More quotes available: rerun with --pages %d\n", pages+1)
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Only show quotes containing this text")
	cmd.Flags().IntVarP(&pages, "pages", "n", 1, "Number of pages to load")

	return cmd
}

func printQuote(cmd *cobra.Command, q domain.Quote) {
	printf(cmd, "#%d  %q\n", q.ID, q.Text)
	line := "    - " + q.Username
	if date := q.CreatedDate(time.Local); date != "" {
		line += ", " + date
	}
	printf(cmd, "%s\n", line)
	if q.HasMedia() {
		printf(cmd, "    %s\n", q.Media())
	}
}

func newPostCmd() *cobra.Command {
	var (
		text  string
		image string
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish a quote, optionally with an image",
		Example: `  crafto post --text "Be kind"
  crafto post --text "Sunrise" --image ./sunrise.jpg`,
		Args: cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			ws := e.app.Workspaces.New()
			ws.Submitter.SetText(text)

			if strings.TrimSpace(image) != "" {
				file, err := readImage(image, e.app.Config.Upload.MaxBytes)
				if err != nil {
					return userError(err)
				}
				if err := ws.Submitter.SelectFile(file); err != nil {
					return userError(err)
				}
			}

			q, err := ws.Submit(cmd.Context(), e.sess)
			if err != nil {
				return userError(err)
			}
			printf(cmd, "%s\n", ws.Submitter.Status().Message)
			printQuote(cmd, q)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "Quote text")
	cmd.Flags().StringVarP(&image, "image", "i", "", "Path to an image to attach")
	_ = cmd.MarkFlagRequired("text")

	return cmd
}

func readImage(path string, maxBytes int64) (*media.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &gateway.UploadError{Cause: gateway.UploadInvalid, Message: "Could not open " + path, Err: err}
	}
	defer f.Close()

	file, err := media.Read(path, f, maxBytes)
	if err != nil {
		return nil, &gateway.UploadError{Cause: gateway.UploadInvalid, Message: "Could not read " + path, Err: err}
	}
	return file, nil
}
