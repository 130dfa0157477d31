package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"falsh/core"
)

// runShell is the line-editor collaborator around the execution core:
// it assembles complete lines and hands them to core.Shell one at a
// time. Keystroke handling stays in the readline library.
func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	fs := afero.NewOsFs()
	sh, err := core.NewShell(fs, cfg, log)
	if err != nil {
		return err
	}

	if cfg.RCFile != "" {
		if err := sh.RunStartupFile(fs, cfg.RCFile); err != nil {
			fmt.Fprintf(os.Stderr, "falsh: %s: %v\n", cfg.RCFile, err)
		}
	}
	if sh.Quit {
		os.Exit(sh.ExitStatus)
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		runPlain(sh, os.Stdin)
		os.Exit(exitStatus(sh))
	}

	printBanner()
	if err := runInteractive(sh, cfg.Prompt); err != nil {
		return err
	}
	os.Exit(exitStatus(sh))
	return nil
}

// exitStatus is the shell's own exit status: the exit builtin's
// argument, or the last line's status when input simply ended.
func exitStatus(sh *core.Shell) int {
	if sh.Quit {
		return sh.ExitStatus
	}
	return sh.LastStatus()
}

func printBanner() {
	name := color.New(color.FgHiMagenta, color.Bold, color.Italic).Sprint("falsh")
	fmt.Printf("Running in %s\n", name)
}

func runInteractive(sh *core.Shell, promptTemplate string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: prompt(promptTemplate),
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for !sh.Quit {
		rl.SetPrompt(prompt(promptTemplate))
		line, err := rl.Readline()

		switch {
		case err == io.EOF:
			return nil // Input closed, quit.

		case err == readline.ErrInterrupt:
			// Interrupt clears the line.
			continue

		case err != nil:
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		sh.Run(line)
	}
	return nil
}

// runPlain consumes lines without prompts or editing, for piped and
// scripted input.
func runPlain(sh *core.Shell, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for !sh.Quit && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sh.Run(line)
	}
}

// prompt renders the configured prompt template; \w expands to the
// working directory, shortened with ~ inside home.
func prompt(template string) string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "?"
	}
	if home, err := os.UserHomeDir(); err == nil && strings.HasPrefix(wd, home) {
		wd = "~" + strings.TrimPrefix(wd, home)
	}

	return strings.ReplaceAll(template, `\w`, wd)
}
