package common

import (
	"encoding/json"
	"strings"
)

// AgentParameter is one named argument of a Bedrock agent action group call.
type AgentParameter struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// AgentEvent is the request a Bedrock agent sends when it invokes a
// function in an action group.
type AgentEvent struct {
	ActionGroup string           `json:"actionGroup"`
	Function    string           `json:"function"`
	Parameters  []AgentParameter `json:"parameters"`
}

type agentFunctionResponse struct {
	ResponseBody map[string]map[string]string `json:"responseBody"`
}

type agentResponse struct {
	ActionGroup      string                `json:"actionGroup"`
	Function         string                `json:"function"`
	FunctionResponse agentFunctionResponse `json:"functionResponse"`
}

type AgentOutput struct {
	MessageVersion string        `json:"messageVersion"`
	Response       agentResponse `json:"response"`
}

func (e *AgentEvent) IsAgentCall() bool {
	return e.ActionGroup != "" && e.Function != ""
}

func (e *AgentEvent) Parameter(name string) string {
	for _, p := range e.Parameters {
		if strings.EqualFold(p.Name, name) {
			return p.Value
		}
	}
	return ""
}

// ListParameter splits a comma separated parameter, dropping blanks.
func (e *AgentEvent) ListParameter(name string) []string {
	var out []string
	for _, part := range strings.Split(e.Parameter(name), ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Respond wraps result as the TEXT body the agent expects.
func (e *AgentEvent) Respond(result any) (AgentOutput, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return AgentOutput{}, err
	}
	return AgentOutput{
		MessageVersion: "1.0",
		Response: agentResponse{
			ActionGroup: e.ActionGroup,
			Function:    e.Function,
			FunctionResponse: agentFunctionResponse{
				ResponseBody: map[string]map[string]string{
					"TEXT": {"body": string(body)},
				},
			},
		},
	}, nil
}
