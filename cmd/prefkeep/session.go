package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kalambet/prefkeep/internal/form"
)

const sessionHelp = "Commands: save (simpan), load (muat), delete (hapus), quit"

// runSession drives c from line-oriented input until quit or EOF.
func runSession(in io.Reader, out io.Writer, c *form.Controller) error {
	sc := bufio.NewScanner(in)

	prompt := func(p string) (string, bool) {
		fmt.Fprint(out, p)
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}

	showView(out, c.View())
	fmt.Fprintln(out, sessionHelp)

	for {
		line, ok := prompt(colorize(colorCyan, "> "))
		if !ok {
			return sc.Err()
		}
		line = strings.TrimSpace(line)
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "q", "keluar":
			return nil
		case "help", "?":
			fmt.Fprintln(out, sessionHelp)
			continue
		}

		action, err := form.ParseAction(line)
		if err != nil {
			fmt.Fprintf(out, "%s %q\n", colorize(colorYellow, "unknown command"), line)
			continue
		}

		if action == form.ActionSave {
			name, ok := prompt("Nama: ")
			if !ok {
				return sc.Err()
			}
			email, ok := prompt("Email: ")
			if !ok {
				return sc.Err()
			}
			c.SetInputs(form.Entry{Name: name, Email: email})
		}

		v, err := c.Handle(action)
		if err != nil {
			if errors.Is(err, form.ErrUnknownAction) {
				continue
			}
			return err
		}
		showView(out, v)
	}
}

func showView(out io.Writer, v form.View) {
	if v.Result != "" {
		fmt.Fprintln(out, v.Result)
	}
	switch v.Notice {
	case "":
	case form.MsgEmptyInput, form.MsgNoData:
		fmt.Fprintln(out, colorize(colorYellow, v.Notice))
	default:
		fmt.Fprintln(out, colorize(colorGreen, v.Notice))
	}
}
