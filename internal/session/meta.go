package session

import (
	"fmt"
	"os"
	"strings"
)

// metaCommand recognizes the file helpers the shell understands besides
// expressions.
func metaCommand(line string) (name, arg string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", "", false
	}
	switch fields[0] {
	case "ls", "cat":
		return fields[0], strings.Join(fields[1:], " "), true
	}
	return "", "", false
}

func (s *Session) runMeta(name, arg string) {
	switch name {
	case "ls":
		path := arg
		if path == "" {
			path = "."
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			s.reportError(err)
			return
		}
		for _, entry := range entries {
			fmt.Fprintf(s.stdout, "  %s\n", entry.Name())
		}
	case "cat":
		if arg == "" {
			return
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			s.reportError(err)
			return
		}
		_, _ = s.stdout.Write(data)
	}
}
