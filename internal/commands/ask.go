package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/grantchat/internal/chat"
	"github.com/diogo/grantchat/internal/models"
	"github.com/diogo/grantchat/internal/render"
	"github.com/diogo/grantchat/internal/tui"
)

type askOptions struct {
	raw    bool
	copy   bool
	output string
	file   string
}

// NewAskCmd creates the single-exchange command
func NewAskCmd(deps *Dependencies) *cobra.Command {
	deps = deps.orDefault()
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Ask a single question and print the reply",
		Long: `Open a session, send one message, print the rendered reply and end the
session. The message can also come from --file or stdin.

When stdout is not a terminal the reply markup is printed as is.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, ok, err := readPrompt(cmd, args, opts.file)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("a message is required")
			}
			return runAsk(cmd, deps, prompt, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print the reply markup without rendering")
	cmd.Flags().BoolVar(&opts.copy, "copy", false, "Copy the reply to the clipboard")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Save the reply to a file")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Read the message from a file")

	return cmd
}

// runAsk runs one exchange and prints the reply
func runAsk(cmd *cobra.Command, deps *Dependencies, prompt string, opts askOptions) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("message cannot be empty")
	}

	s, err := openSession(deps)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	raw := opts.raw || !deps.IsTTY()

	machine := chat.NewMachine()

	p := startProgress(!raw, "Connecting to the assistant")
	start := s.client.StartSession(ctx, s.user.UserID)
	if start.Fallback {
		p.fail()
		if !raw {
			fmt.Fprintln(os.Stderr, warningStyle.Render("⚠ The backend did not answer the session start"))
		}
	} else {
		p.success("Connected")
	}
	if start.Message != "" {
		_ = machine.Seed(start.Message)
	}

	prompt, err = machine.Submit(prompt)
	if err != nil {
		return err
	}

	p = startProgress(!raw, "Waiting for the assistant")
	reply := s.client.SendMessage(ctx, s.user.UserID, prompt)
	if reply.Failed {
		p.fail()
		_ = machine.ResolveError()
	} else {
		p.success("Done")
		_ = machine.Resolve(reply.Text)
	}

	if reply.SessionEnded {
		machine.Terminate("")
	} else {
		s.client.EndSession(ctx, s.user.UserID)
	}

	if err := s.saver(historyStore()).Save(ctx, s.user.UserID, machine.Turns()); err != nil && !raw {
		fmt.Fprintln(os.Stderr, warningStyle.Render(fmt.Sprintf("⚠ Failed to save history: %v", err)))
	}

	text, _ := machine.LastReply()

	if opts.copy || s.cfg.CopyToClipboard {
		if err := deps.Copy(render.Plain(text)); err != nil {
			if !raw {
				fmt.Fprintln(os.Stderr, warningStyle.Render(fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err)))
			}
		} else if !raw {
			fmt.Fprintln(os.Stderr, successStyle.Render("✓ Copied to clipboard"))
		}
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !raw {
			fmt.Fprintln(os.Stderr, successStyle.Render(fmt.Sprintf("✓ Response saved to %s", opts.output)))
		}
		return nil
	}

	if raw {
		fmt.Fprint(out, text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(out)
		}
		return nil
	}

	tui.ApplyTheme(s.cfg.TUITheme)

	bubbleWidth := min(max(getTerminalWidth()-4, 40), 120)
	contentWidth := bubbleWidth - 4

	rendered := render.Reply(text, render.OptionsFromConfig(s.cfg).WithWidth(contentWidth), render.GetTUITheme())

	fmt.Fprintln(out)
	fmt.Fprintln(out, assistantLabelStyle.Render("✦ Assistant"))
	fmt.Fprintln(out, assistantBubbleStyle.Width(bubbleWidth).Render(rendered))
	if reply.SessionEnded {
		fmt.Fprintln(out, dimStyle.Render(models.SessionEndedNotice))
	}
	return nil
}
