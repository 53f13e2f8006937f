package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Hooksend/internal/draft"
	"github.com/SmitUplenchwar2687/Hooksend/internal/recorder"
	"github.com/SmitUplenchwar2687/Hooksend/internal/sender"
)

const responsibleUseNotice = `Please use webhooks responsibly. Spam, impersonation and abusive content
are blocked, and repeated violations lead to longer temporary blocks.`

type sendOptions struct {
	webhook          string
	content          string
	username         string
	avatar           string
	image            string
	embed            bool
	embedTitle       string
	embedDescription string
	embedColor       string
	embedImage       string
	acceptTerms      bool
	outputJSON       bool
	recordFile       string
}

func newSendCmd(g *globalOptions) *cobra.Command {
	var o sendOptions

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Validate and send a message to a webhook",
		Long: `Sends one message. The webhook URL, username, avatar and embed settings are
remembered for the next send; message content never is.

Pass --content - to read the message from stdin.`,
		Example: `  hooksend send --webhook https://discord.com/api/webhooks/1/abc --content "Deploy done" --accept-terms
  hooksend send --embed --embed-title "Release 1.2" --embed-color "#57F287" --accept-terms
  echo "nightly build green" | hooksend send --content - --accept-terms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := g.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.Drafts.NoticeShown(ctx) {
				fmt.Fprintln(cmd.ErrOrStderr(), responsibleUseNotice)
				if err := a.Sender.AcknowledgeNotice(ctx); err != nil {
					g.logger.Warn("failed to record notice acknowledgement", zap.Error(err))
				}
			}

			d := a.NewDraft(ctx)
			if err := o.applyTo(cmd, d); err != nil {
				return err
			}

			submitted := *d
			out := a.Sender.Send(ctx, d)
			if o.recordFile != "" {
				attempt := recorder.NewAttempt(a.Clock.Now(), submitted, out)
				if err := appendAttempt(o.recordFile, attempt); err != nil {
					g.logger.Warn("failed to record send attempt", zap.Error(err))
				}
			}
			if o.outputJSON {
				if err := printJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else {
				printOutcome(cmd.OutOrStdout(), out)
			}
			if !out.OK() {
				return fmt.Errorf("message not sent (%s)", out.Status)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.webhook, "webhook", "", "webhook URL (defaults to the remembered or configured one)")
	f.StringVar(&o.content, "content", "", "message text, or - to read stdin")
	f.StringVar(&o.username, "username", "", "display name override")
	f.StringVar(&o.avatar, "avatar", "", "avatar image URL")
	f.StringVar(&o.image, "image", "", "image URL or data URI appended to the message")
	f.BoolVar(&o.embed, "embed", false, "send as an embed")
	f.StringVar(&o.embedTitle, "embed-title", "", "embed title")
	f.StringVar(&o.embedDescription, "embed-description", "", "embed description")
	f.StringVar(&o.embedColor, "embed-color", "", `embed color as "#RRGGBB"`)
	f.StringVar(&o.embedImage, "embed-image", "", "embed image URL or data URI")
	f.BoolVar(&o.acceptTerms, "accept-terms", false, "confirm the message follows the platform's terms")
	f.BoolVar(&o.outputJSON, "json", false, "output the outcome as JSON")
	f.StringVar(&o.recordFile, "record", "", "append the attempt to a JSON recording for replay")

	return cmd
}

// applyTo overlays the flags on a draft seeded from the remembered profile.
// Identity flags only override when given.
func (o *sendOptions) applyTo(cmd *cobra.Command, d *draft.Draft) error {
	content := o.content
	if content == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading message from stdin: %w", err)
		}
		content = strings.TrimRight(string(data), "\r\n")
	}

	if flagChanged(cmd, "webhook") {
		d.WebhookURL = o.webhook
	}
	if flagChanged(cmd, "username") {
		d.Username = o.username
	}
	if flagChanged(cmd, "avatar") {
		d.AvatarURL = o.avatar
	}
	if flagChanged(cmd, "embed") {
		d.UseEmbed = o.embed
	}
	if flagChanged(cmd, "embed-color") {
		d.EmbedColor = o.embedColor
	}

	d.Content = content
	d.ContentImageURL = o.image
	d.EmbedTitle = o.embedTitle
	d.EmbedDescription = o.embedDescription
	d.EmbedImageURL = o.embedImage
	d.TermsAccepted = o.acceptTerms
	return nil
}

// appendAttempt adds a to the JSON array at path, creating it if needed.
func appendAttempt(path string, a recorder.Attempt) error {
	rec := recorder.New(nil)

	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return err
	default:
		attempts, err := recorder.LoadJSON(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("reading recording %s: %w", path, err)
		}
		for _, prev := range attempts {
			if err := rec.Record(prev); err != nil {
				return err
			}
		}
	}

	if err := rec.Record(a); err != nil {
		return err
	}
	return rec.ExportFile(path)
}

func printOutcome(w io.Writer, out sender.Outcome) {
	switch {
	case out.OK():
		fmt.Fprintln(w, out.Message)
	case out.Field != "":
		fmt.Fprintf(w, "%s (%s): %s\n", out.Status, out.Field, out.Message)
	default:
		fmt.Fprintf(w, "%s: %s\n", out.Status, out.Message)
	}
}
