package workflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openpecha/catalog/internal/client"
	"github.com/openpecha/catalog/internal/models"
)

// Creator is the part of the gateway client the create flow needs.
type Creator interface {
	CreateText(ctx context.Context, payload any) (*models.Text, error)
	CreateTextInstance(ctx context.Context, textID string, payload any) (*models.Instance, error)
}

var _ Creator = (*client.Client)(nil)

// ErrNoText is returned when neither an existing text nor a new text form
// was given.
var ErrNoText = errors.New("no text selected or created")

// CreateRequest is one submission of the create page: either pick an
// existing text by id or fill in a new text, plus the instance form.
type CreateRequest struct {
	TextID   string
	NewText  *TextForm
	Instance *InstanceForm
}

// Result reports what the create flow achieved.
type Result struct {
	TextID      string `json:"text_id,omitempty"`
	InstanceID  string `json:"instance_id,omitempty"`
	CreatedText bool   `json:"created_text"`
	// Redirect is where the UI navigates next, empty to stay on the page.
	Redirect string `json:"redirect,omitempty"`
}

// StepError wraps the failure of one network step.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	msg := e.Err.Error()
	if apiErr, ok := client.AsAPIError(e.Err); ok {
		msg = apiErr.Message
	}
	return "Failed to create: " + msg
}

func (e *StepError) Unwrap() error { return e.Err }

// Create validates every form, then creates the text when a new one was
// given and only after it resolved creates the instance. When the instance
// fails after a new text was created, the result keeps the text id and
// redirects to that text.
func Create(ctx context.Context, c Creator, req CreateRequest) (Result, error) {
	if req.NewText != nil {
		if err := req.NewText.Validate(); err != nil {
			return Result{}, err
		}
	} else if req.TextID == "" {
		return Result{}, ErrNoText
	}
	if req.Instance == nil {
		req.Instance = NewInstanceForm()
	}
	if err := req.Instance.Validate(); err != nil {
		return Result{}, err
	}

	res := Result{TextID: req.TextID}
	if req.NewText != nil {
		text, err := c.CreateText(ctx, req.NewText.Payload())
		if err != nil {
			return Result{}, &StepError{Step: "text", Err: err}
		}
		if text.ID == "" {
			return Result{}, &StepError{Step: "text", Err: ErrNoText}
		}
		res.TextID = text.ID
		res.CreatedText = true
	}

	inst, err := c.CreateTextInstance(ctx, res.TextID, req.Instance.Payload())
	if err != nil {
		if res.CreatedText {
			res.Redirect = "/texts/" + res.TextID
		}
		slog.Warn("instance creation failed",
			slog.String("text_id", res.TextID),
			slog.Bool("created_text", res.CreatedText),
			slog.String("error", err.Error()))
		return res, &StepError{Step: "instance", Err: err}
	}
	res.InstanceID = inst.ID
	res.Redirect = "/texts"
	return res, nil
}
