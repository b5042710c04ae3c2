package editor

import (
	"errors"
	"strconv"
	"strings"
)

// pickNew is returned as the index when the user chooses the NEW entry.
const pickNew = -1

// errAborted reports that the user typed q at a selection prompt.
var errAborted = errors.New("selection aborted")

// pickIndex shows an indexed table of rows and asks the user to choose
// one. It re-asks on invalid input. When allowNew is true a trailing NEW
// row is offered and pickNew is returned for it. Typing q aborts with
// errAborted.
func pickIndex(term Terminal, headers []string, rows [][]string, text string, allowNew bool) (int, error) {
	idxHeaders := append([]string{"idx"}, headers...)
	idxRows := make([][]string, 0, len(rows)+1)
	for i, r := range rows {
		idxRows = append(idxRows, append([]string{strconv.Itoa(i)}, r...))
	}
	if allowNew {
		newRow := append([]string{strconv.Itoa(len(rows))}, make([]string, len(headers))...)
		if len(headers) > 0 {
			newRow[1] = "NEW"
		}
		idxRows = append(idxRows, newRow)
	}

	for {
		term.Table(idxHeaders, idxRows)
		line, err := term.Prompt(text + " (idx or q)")
		if err != nil {
			return 0, err
		}
		line = strings.TrimSpace(line)
		if line == "q" {
			return 0, errAborted
		}
		idx, err := strconv.Atoi(line)
		if err != nil {
			term.Err("invalid index %q", line)
			continue
		}
		if allowNew && idx == len(rows) {
			return pickNew, nil
		}
		if idx < 0 || idx >= len(rows) {
			term.Err("index %d out of range", idx)
			continue
		}
		return idx, nil
	}
}

// confirm asks a yes/no question, re-asking until the answer is one of
// y/yes/n/no.
func confirm(term Terminal, text string) (bool, error) {
	for {
		line, err := term.Prompt(text + " (y/n)")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			term.Err("please answer y or n")
		}
	}
}

// matchCommand resolves an input word against the command set by unique
// prefix. It returns the resolved command, or the list of ambiguous
// matches when the prefix is not unique.
func matchCommand(word string, commands []string) (string, []string) {
	var matches []string
	for _, c := range commands {
		if c == word {
			return c, nil
		}
		if strings.HasPrefix(c, word) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	return "", matches
}
