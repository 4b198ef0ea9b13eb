package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/reqflow/httpclient"
	"github.com/kbukum/reqflow/observability"
	"github.com/kbukum/reqflow/util"
)

// Output modes for the response body.
const (
	outputBody = "body"
	outputJSON = "json"
	outputNone = "none"
)

type requestOptions struct {
	headers     []string
	queries     []string
	data        string
	json        bool
	form        []string
	timeout     time.Duration
	retry       int
	noFail      bool
	include     bool
	output      string
	bearer      string
	user        string
	errorFormat string
	requestID   string
}

func newRequestCommand(g *globalOptions) *cobra.Command {
	opts := &requestOptions{retry: -1}

	cmd := &cobra.Command{
		Use:   "request METHOD URL",
		Short: "Send one HTTP request",
		Long: `Send one HTTP request through the execution engine.

URL may be relative to http.base_url. Idempotent methods are retried on
408, 413, 429, 500, 502, 503 and 504 up to the configured limit.`,
		Example: `  reqflow request GET https://api.example.com/users -q page=2
  reqflow request POST /users --json -d '{"name":"ada"}'
  reqflow request PUT /avatar -F name=ada -F file=@avatar.png`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, g, opts, strings.ToUpper(args[0]), args[1])
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&opts.headers, "header", "H", nil, "Request header \"Name: value\" (repeatable)")
	f.StringArrayVarP(&opts.queries, "query", "q", nil, "Query parameter key=value (repeatable)")
	f.StringVarP(&opts.data, "data", "d", "", "Request body; @file reads a file, @- reads stdin")
	f.BoolVar(&opts.json, "json", false, "Send --data as application/json")
	f.StringArrayVarP(&opts.form, "form", "F", nil, "Multipart field key=value or key=@file (repeatable)")
	f.DurationVar(&opts.timeout, "timeout", 0, "Per-attempt timeout (overrides http.timeout)")
	f.IntVar(&opts.retry, "retry", -1, "Retry limit (overrides http.retry.limit)")
	f.BoolVar(&opts.noFail, "no-fail", false, "Exit 0 on non-2xx responses")
	f.BoolVarP(&opts.include, "include", "i", false, "Print status line and headers")
	f.StringVarP(&opts.output, "output", "o", outputBody, "Body output: body, json or none")
	f.StringVar(&opts.bearer, "bearer", "", "Bearer token")
	f.StringVarP(&opts.user, "user", "u", "", "Basic auth user:password")
	f.StringVar(&opts.errorFormat, "error-format", "text", "Error output: text or json")
	f.StringVar(&opts.requestID, "request-id", "", "X-Request-Id to send (UUID); generated when empty")
	return cmd
}

func runRequest(cmd *cobra.Command, g *globalOptions, opts *requestOptions, method, target string) error {
	if err := opts.validate(); err != nil {
		return usageError(err)
	}
	settings, err := g.load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	ss, err := openSession(ctx, settings)
	if err != nil {
		return err
	}
	defer ss.close(ctx)

	b := ss.client().Request(method, target)
	if err := opts.apply(b, cmd.InOrStdin(), settings.HTTP.Retry); err != nil {
		return usageError(err)
	}

	op := observability.NewOperation(settings.Name, "request "+method, opts.requestID)
	resp, err := b.Send(observability.WithOperation(ctx, op))
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) && httpErr.Response != nil {
			if perr := printResponse(cmd.OutOrStdout(), httpErr.Response, opts); perr != nil {
				return perr
			}
		}
		return reportRequestError(cmd.ErrOrStderr(), err, settings.HTTP.Name, opts.errorFormat)
	}
	return printResponse(cmd.OutOrStdout(), resp, opts)
}

func (o *requestOptions) validate() error {
	switch o.output {
	case outputBody, outputJSON, outputNone:
	default:
		return fmt.Errorf("invalid --output %q: must be one of body, json, none", o.output)
	}
	switch o.errorFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid --error-format %q: must be text or json", o.errorFormat)
	}
	if o.data != "" && len(o.form) > 0 {
		return fmt.Errorf("--data and --form are mutually exclusive")
	}
	if o.bearer != "" && o.user != "" {
		return fmt.Errorf("--bearer and --user are mutually exclusive")
	}
	if o.timeout < 0 {
		return fmt.Errorf("--timeout must not be negative")
	}
	if o.requestID != "" {
		id, err := util.ValidateUUID("--request-id", o.requestID)
		if err != nil {
			return err
		}
		o.requestID = id.String()
	}
	return nil
}

// apply translates flags onto the builder.
func (o *requestOptions) apply(b *httpclient.Builder, stdin io.Reader, retry httpclient.RetryConfig) error {
	for _, h := range o.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("invalid header %q: expected \"Name: value\"", h)
		}
		b.Header(util.SanitizeString(name), util.SanitizeString(value))
	}
	for _, q := range o.queries {
		key, value, ok := strings.Cut(q, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid query %q: expected key=value", q)
		}
		b.Query(key, value)
	}

	if o.data != "" {
		data, err := readData(o.data, stdin)
		if err != nil {
			return err
		}
		if o.json {
			if !json.Valid(data) {
				return fmt.Errorf("--data is not valid JSON")
			}
			b.JSON(data)
		} else {
			b.Body(string(data))
		}
	}
	for _, field := range o.form {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid form field %q: expected key=value", field)
		}
		if path, isFile := strings.CutPrefix(value, "@"); isFile {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read form file: %w", err)
			}
			b.Attach(key, filepath.Base(path), "", data)
			continue
		}
		b.Field(key, value)
	}

	if o.timeout > 0 {
		b.Timeout(o.timeout)
	}
	if o.retry >= 0 {
		retry.Limit = o.retry
		b.Retry(*retry.Policy())
	}
	if o.noFail {
		b.ThrowHTTPErrors(false)
	}
	switch {
	case o.bearer != "":
		b.Auth(httpclient.BearerAuth(o.bearer))
	case o.user != "":
		user, pass, _ := strings.Cut(o.user, ":")
		b.Auth(httpclient.BasicAuth(user, pass))
	}
	return nil
}

func readData(arg string, stdin io.Reader) ([]byte, error) {
	path, isRef := strings.CutPrefix(arg, "@")
	if !isRef {
		return []byte(arg), nil
	}
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	return data, nil
}

func printResponse(w io.Writer, resp *httpclient.Response, opts *requestOptions) error {
	if opts.include {
		fmt.Fprintf(w, "%d %s\n", resp.StatusCode, resp.Status)
		names := make([]string, 0, len(resp.Header))
		for name := range resp.Header {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "%s: %s\n", name, resp.Header[name])
		}
		fmt.Fprintln(w)
	}

	switch opts.output {
	case outputNone:
		return nil
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(responseView{
			StatusCode:  resp.StatusCode,
			Status:      resp.Status,
			OK:          resp.OK,
			Header:      resp.Header,
			ContentType: resp.ContentType,
			Body:        resp.Body,
		})
	default:
		if resp.Text == "" {
			return nil
		}
		_, err := io.WriteString(w, resp.Text)
		if err == nil && !strings.HasSuffix(resp.Text, "\n") {
			_, err = io.WriteString(w, "\n")
		}
		return err
	}
}

// responseView is the --output json shape.
type responseView struct {
	StatusCode  int               `json:"status_code"`
	Status      string            `json:"status"`
	OK          bool              `json:"ok"`
	Header      map[string]string `json:"headers"`
	ContentType string            `json:"content_type,omitempty"`
	Body        any               `json:"body,omitempty"`
}

func reportRequestError(w io.Writer, err error, service, format string) error {
	code := requestExitCode(err)
	if format != "json" {
		return &ExitError{Code: code, Err: err}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(httpclient.ToAppError(err, service).ToResponse()); encErr != nil {
		return &ExitError{Code: code, Err: err}
	}
	return &ExitError{Code: code, Err: err, Silent: true}
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}
