package cli

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/mattn/go-isatty"
)

// MainLoop feeds stdin lines to exec until EOF.
// Terminal gets interactive prompt, pipe is read line by line.
func MainLoop(prefix string, exec func(line string), complete func(d prompt.Document) []prompt.Suggest) error {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		if complete == nil {
			complete = NoComplete
		}
		prompt.New(exec, complete, prompt.OptionPrefix(prefix)).Run()
		return nil
	}
	return ReadLines(os.Stdin, exec)
}

func ReadLines(r io.Reader, exec func(line string)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		exec(strings.TrimSpace(scanner.Text()))
	}
	return errors.Annotate(scanner.Err(), "read lines")
}

func NoComplete(prompt.Document) []prompt.Suggest { return nil }
