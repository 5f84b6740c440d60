package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/rand/starweave/internal/app"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive session",
	Long: heredoc.Doc(`
		Start an interactive session. Each line is matched against the
		agent's concepts. Lines starting with a slash are commands:

		  /cocreate <module> <text>  run a co-creation round
		  /modules                   list modules and their co-creations
		  /prompt                    show the current proactive prompt
		  /reflect                   reflect on recent activity
		  /history [n]               show recent interactions
		  /stats                     show interaction statistics
		  /help                      show this help
		  /exit                      end the session
	`),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, cleanup, err := openAgent(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		return runChat(cmd.Context(), agent, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

const chatHelp = `Commands: /cocreate <module> <text>, /modules, /prompt, /reflect, /history [n], /stats, /exit`

// runChat reads lines from in until EOF, /exit or context cancellation.
func runChat(ctx context.Context, agent *app.Agent, in io.Reader, out io.Writer) error {
	styledln(out, titleStyle.Render("🌟 STARWEAVE"))
	styledln(out, mutedStyle.Render("Type something, or /help for commands."))
	styledln(out, promptStyle.Render("💭 "+agent.Prompt()))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := runChatCommand(ctx, agent, line, out)
			if err != nil {
				styledln(out, warnStyle.Render("Error: "+err.Error()))
			}
			if done {
				return nil
			}
			continue
		}

		res, err := agent.Process(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			styledln(out, warnStyle.Render("Error: "+err.Error()))
			continue
		}
		fmt.Fprintln(out)
		renderResult(out, res)
	}
}

func runChatCommand(ctx context.Context, agent *app.Agent, line string, out io.Writer) (bool, error) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "/exit", "/quit":
		styledln(out, mutedStyle.Render("Goodbye."))
		return true, nil

	case "/help":
		fmt.Fprintln(out, chatHelp)

	case "/cocreate":
		if len(args) < 2 {
			return false, errors.New("usage: /cocreate <module> <text>")
		}
		report := agent.CoCreate(ctx, args[0], strings.Join(args[1:], " "))
		renderCoCreation(out, report)

	case "/modules":
		renderModules(out, agent.Modules())

	case "/prompt":
		styledln(out, promptStyle.Render("💭 "+agent.Prompt()))

	case "/reflect":
		r, err := agent.Reflect(ctx)
		if err != nil {
			return false, err
		}
		renderReflection(out, r)

	case "/history":
		n := 10
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v <= 0 {
				return false, fmt.Errorf("invalid count %q", args[0])
			}
			n = v
		}
		entries, err := agent.History(ctx, n)
		if err != nil {
			return false, err
		}
		renderHistory(out, entries)

	case "/stats":
		stats, err := agent.Stats(ctx)
		if err != nil {
			return false, err
		}
		renderStats(out, stats, agent.Propensity())

	default:
		return false, fmt.Errorf("unknown command %s; %s", name, chatHelp)
	}
	return false, nil
}
