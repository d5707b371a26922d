package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/calagent/dispatcher"
	"github.com/effective-security/calagent/pkg/llmutils"
	"github.com/fatih/color"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var (
	okColor     = color.New(color.FgGreen)
	failedColor = color.New(color.FgRed)
	answerColor = color.New(color.FgBlue)
)

func validFormat(format string) bool {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// printResult writes the turn result in the format.
func printResult(w io.Writer, res *dispatcher.Result, format string) error {
	switch format {
	case FormatJSON:
		_, err := io.WriteString(w, llmutils.EnsureEndsWithNewline(llmutils.ToJSONIndent(res)))
		return errors.WithStack(err)
	case FormatYAML:
		_, err := io.WriteString(w, llmutils.EnsureEndsWithNewline(llmutils.ToYAML(res)))
		return errors.WithStack(err)
	case FormatText:
		printText(w, res)
		return nil
	}
	return errors.Newf("unsupported output format: %s", format)
}

func printText(w io.Writer, res *dispatcher.Result) {
	if res.Kind == dispatcher.KindText {
		answerColor.Fprintln(w, res.Content)
		return
	}

	if res.AssistantText != "" {
		answerColor.Fprintln(w, res.AssistantText)
	}
	for _, o := range res.Outcomes {
		if o.Succeeded() {
			okColor.Fprintf(w, "[ok] %s (%s)\n", o.Request.ToolName, o.Request.ID)
			fmt.Fprintln(w, indent(llmutils.JSONIndent(string(o.Result)), "    "))
			continue
		}
		failedColor.Fprintf(w, "[failed] %s (%s): %s: %s\n",
			o.Request.ToolName, o.Request.ID, o.Error.Kind, o.Error.Message)
	}
	if failed := res.Failed(); failed > 0 {
		failedColor.Fprintf(w, "%d of %d tool calls failed\n", failed, len(res.Outcomes))
	}
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
