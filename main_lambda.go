//go:build lambda

package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/JNighthawk/bdotools-conversation-solver/internal/catalog"
	"github.com/JNighthawk/bdotools-conversation-solver/internal/solver"
)

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

type solveRequest struct {
	Target   string `json:"target"`
	Interest int    `json:"interest"`
	Favor    int    `json:"favor"`
	Goal     string `json:"goal"`
	Param    int    `json:"param"`
	Fast     bool   `json:"fast"`
}

// The runner is opened on the first invocation and reused while the instance stays warm.
var runner = &lazyRunner{open: func(ctx context.Context) (*Runner, error) {
	cfg, err := LoadConfig("")
	if err != nil {
		return nil, err
	}
	return openRunner(ctx, cfg)
}}

func handler(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(400, "invalid base64 body")
		}
		body = string(decoded)
	}

	var req solveRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return errResp(400, "invalid JSON: "+err.Error())
	}
	if req.Target == "" {
		return errResp(400, "missing target")
	}
	if req.Goal == "" {
		return errResp(400, "missing goal")
	}
	goal, err := solver.ParseGoal(req.Goal)
	if err != nil {
		return errResp(400, err.Error())
	}

	r, err := runner.get(ctx)
	if err != nil {
		return errResp(500, "open store: "+err.Error())
	}
	j, err := r.lookup(req.Target, req.Interest, req.Favor, modeFor(req.Fast))
	if err != nil {
		return errResp(404, err.Error())
	}
	c, err := r.Cell(ctx, j, goal, req.Param)
	switch {
	case errors.Is(err, solver.ErrThresholdOutOfRange), errors.Is(err, catalog.ErrNotFound):
		return errResp(400, err.Error())
	case err != nil:
		return errResp(500, fmt.Sprintf("solve %s: %v", req.Target, err))
	}

	respJSON, _ := json.Marshal(c)
	return events.LambdaFunctionURLResponse{StatusCode: 200, Headers: jsonHeader, Body: string(respJSON)}, nil
}

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}

func main() {
	lambda.Start(handler)
}
