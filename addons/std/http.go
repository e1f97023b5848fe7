package std

import (
	"context"
	"strings"

	"resty.dev/v3"

	"github.com/vk/runbookgo/internal/commands"
	"github.com/vk/runbookgo/internal/ctxlog"
	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/supervisor"
	"github.com/vk/runbookgo/internal/values"
)

// newSendHTTPRequestSpecification builds the std::send_http_request action.
func newSendHTTPRequestSpecification() *commands.CommandSpecification {
	return &commands.CommandSpecification{
		Name:          "Send HTTP request",
		Matcher:       "send_http_request",
		Documentation: "Sends an HTTP request and exposes the response status and body.",
		Inputs: []commands.CommandInput{
			{Name: "url", Documentation: "Request URL.", Type: values.StringType()},
			{Name: "method", Documentation: "HTTP method, default GET.", Type: values.StringType(), Optional: true},
			{Name: "body", Documentation: "Request body.", Type: values.StringType(), Optional: true},
			{Name: "headers", Documentation: "Request headers.", Type: values.ObjectType(), Optional: true},
			{Name: "description", Documentation: "Operator facing description.", Type: values.StringType(), Optional: true},
		},
		Outputs: []commands.CommandOutput{
			{Name: "status_code", Documentation: "Response status code.", Type: values.IntegerType()},
			{Name: "response_body", Documentation: "Response body as a string.", Type: values.StringType()},
		},
		CheckExecutability: checkSendHTTPRequestExecutability,
		RunExecution:       runSendHTTPRequest,
	}
}

// checkSendHTTPRequestExecutability asks the supervisor to review the
// request before it goes out. Unsupervised runs proceed without review.
func checkSendHTTPRequestExecutability(ctx context.Context, constructDid did.ConstructDid, instanceName string, spec *commands.CommandSpecification, inputs *values.ValueStore, sup supervisor.Context) ([]*supervisor.ActionItemRequest, *diagnostics.Diagnostic) {
	if !sup.Supervised {
		return nil, nil
	}
	title := "Send HTTP request " + instanceName
	if d, found := inputs.Get("description"); found {
		if s, ok := d.AsString(); ok && s != "" {
			title = s
		}
	}
	url, _ := inputs.Get("url")
	return []*supervisor.ActionItemRequest{{
		ConstructDid: constructDid,
		Title:        title,
		Description:  "Review the request URL before it is sent.",
		Type:         supervisor.ReviewInput,
		Key:          "review/" + instanceName,
		Payload:      url,
	}}, nil
}

func runSendHTTPRequest(ctx context.Context, constructDid did.ConstructDid, spec *commands.CommandSpecification, inputs *values.ValueStore, progress chan<- supervisor.BlockEvent) (*commands.CommandExecutionResult, *diagnostics.Diagnostic) {
	logger := ctxlog.FromContext(ctx)

	url, err := inputs.GetString("url")
	if err != nil {
		return nil, diagnostics.Errorf("send_http_request: %s", err)
	}
	method := "GET"
	if m, found := inputs.Get("method"); found {
		if s, ok := m.AsString(); ok && s != "" {
			method = strings.ToUpper(s)
		}
	}

	client := resty.New()
	defer client.Close()

	req := client.R().SetContext(ctx)
	if body, found := inputs.Get("body"); found {
		if s, ok := body.AsString(); ok {
			req.SetBody(s)
		}
	}
	if headers, found := inputs.Get("headers"); found {
		if obj, ok := headers.AsObject(); ok {
			for _, key := range obj.Keys() {
				if val, exists := obj.Get(key); exists {
					if s, isStr := val.AsString(); isStr {
						req.SetHeader(key, s)
					}
				}
			}
		}
	}

	logger.Info("Sending HTTP request.", "method", method, "url", url)
	if progress != nil {
		progress <- supervisor.BlockEvent{
			Type:         supervisor.EventProgress,
			ConstructDid: constructDid,
			Message:      method + " " + url,
		}
	}

	res, err := req.Execute(method, url)
	if err != nil {
		return nil, diagnostics.Errorf("send_http_request: %s", err)
	}
	logger.Info("Received HTTP response.", "status", res.StatusCode())

	result := commands.NewCommandExecutionResult(spec.Name)
	result.Outputs.Insert("status_code", values.Integer(int64(res.StatusCode())))
	result.Outputs.Insert("response_body", values.String(res.String()))
	return result, nil
}
