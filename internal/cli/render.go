package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vk/kindledrop/internal/submission"
)

func renderRequest(out io.Writer, engineURL string, req submission.Request) {
	fmt.Fprintln(out, "Engine:", engineURL)
	raw, err := req.RedactedJSON()
	if err != nil {
		fmt.Fprintln(out, "Request: <unprintable>")
		return
	}
	fmt.Fprintln(out, "Request:", string(raw))
}

func renderSent(out io.Writer, res submission.Result) {
	fmt.Fprintf(out, "✔ Sent ✅  %s (%s)\n", res.FileName, submission.FormatBytes(res.Bytes))
	fmt.Fprintf(out, "Resolved: %s\n", res.ResolvedURL)
}

func renderDryRun(out io.Writer, res submission.Result) {
	fmt.Fprintf(out, "✔ Dry run OK. Resolved: %s\n", res.ResolvedURL)
	fmt.Fprintf(out, "File: %s\n", res.FileName)
}

func renderFailure(out io.Writer, msg string) {
	if msg == "" {
		msg = "Failed."
	}
	fmt.Fprintf(out, "✖ %s\n", msg)
}

// renderFailureDetail dumps whatever the engine sent back for -v.
func renderFailureDetail(out io.Writer, resp *submission.Response, err error) {
	if resp != nil {
		if raw, mErr := json.MarshalIndent(resp, "", "  "); mErr == nil {
			fmt.Fprintln(out, "Response:", string(raw))
			return
		}
	}
	var tErr *submission.TransportError
	if errors.As(err, &tErr) && len(tErr.Body) > 0 {
		fmt.Fprintln(out, "Response:", string(tErr.Body))
		return
	}
	fmt.Fprintf(out, "Error: %+v\n", err)
}
