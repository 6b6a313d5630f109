package protocol

import "encoding/json"

// DidChangeConfigurationParams for workspace/didChangeConfiguration.
// The settings shape is server-defined, so it stays raw here.
type DidChangeConfigurationParams struct {
	Settings json.RawMessage `json:"settings"`
}

// ExecuteCommandParams for workspace/executeCommand.
type ExecuteCommandParams struct {
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
}

// ExecuteCommandOptions lists the commands the server handles.
type ExecuteCommandOptions struct {
	WorkDoneProgressOptions
	Commands []string `json:"commands"`
}

// ApplyWorkspaceEditParams for the server-initiated workspace/applyEdit
// request.
type ApplyWorkspaceEditParams struct {
	Edit  WorkspaceEdit `json:"edit"`
	Label string        `json:"label,omitempty"`
}

// ApplyWorkspaceEditResponse reports whether the client applied the
// edit.
type ApplyWorkspaceEditResponse struct {
	Applied       bool   `json:"applied"`
	FailureReason string `json:"failureReason,omitempty"`
}
