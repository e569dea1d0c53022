package domain

import (
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindCreate              Kind = "create"
	KindIssueVerification   Kind = "issue_verification"
	KindApplyPasswordChange Kind = "apply_password_change"
)

var Kinds = []Kind{KindCreate, KindIssueVerification, KindApplyPasswordChange}

func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Command is the payload of every lifecycle message. Fields a kind does not
// use are left empty. RequestID is assigned by the producer and stays the
// same across redeliveries.
type Command struct {
	Kind        Kind   `json:"kind" validate:"required,oneof=create issue_verification apply_password_change"`
	RequestID   string `json:"request_id,omitempty" validate:"max=128"`
	Username    string `json:"username" validate:"required,username"`
	Email       string `json:"email,omitempty" validate:"required_if=Kind create,omitempty,email,max=254"`
	DisplayName string `json:"display_name,omitempty" validate:"max=64"`
	Password    string `json:"password,omitempty" validate:"required_if=Kind apply_password_change,omitempty,password"`
	Token       string `json:"token,omitempty" validate:"required_if=Kind apply_password_change,max=128"`
}

func Encode(cmd Command) ([]byte, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}
	return body, nil
}

// Decode only checks that the payload is a command of a known kind; field
// rules are applied by Validate.
func Decode(body []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(body, &cmd); err != nil {
		return Command{}, fmt.Errorf("failed to decode command: %w", err)
	}
	if !cmd.Kind.Valid() {
		return Command{}, fmt.Errorf("failed to decode command: unknown kind %q", cmd.Kind)
	}
	return cmd, nil
}
