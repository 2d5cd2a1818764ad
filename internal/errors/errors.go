package errors

import "fmt"

// ErrorType defines the category of the error
type ErrorType string

const (
	TypeConfiguration ErrorType = "CONFIGURATION"
	TypeAI            ErrorType = "AI"
	TypeGit           ErrorType = "GIT"
	TypeInput         ErrorType = "INPUT"
	TypeInternal      ErrorType = "INTERNAL"
)

// AppError represents a domain-level error with a type and an underlying error
type AppError struct {
	Type       ErrorType
	Message    string
	Context    map[string]interface{}
	Err        error
	Suggestion string
}

func (e *AppError) Error() string {
	var msg string
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Type, e.Message)
	}

	if e.Context != nil {
		if stderr, ok := e.Context["stderr"].(string); ok && stderr != "" {
			msg += fmt.Sprintf(" - %s", stderr)
		}
	}

	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the same kind of AppError, so that a derived
// error (WithError, WithContext...) still matches its sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithError creates a new AppError with an underlying error
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        err,
		Suggestion: e.Suggestion,
	}
}

// WithContext creates a new AppError with additional context
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	ctx := make(map[string]interface{})
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    ctx,
		Err:        e.Err,
		Suggestion: e.Suggestion,
	}
}

func (e *AppError) WithSuggestion(suggestion string) *AppError {
	return &AppError{
		Type:       e.Type,
		Message:    e.Message,
		Context:    e.Context,
		Err:        e.Err,
		Suggestion: suggestion,
	}
}

// NewAppError creates a new AppError
func NewAppError(t ErrorType, msg string, err error) *AppError {
	return &AppError{
		Type:    t,
		Message: msg,
		Err:     err,
	}
}

// Git errors
var (
	ErrVCSUnavailable = NewAppError(TypeGit, "Failed to run git", nil).
				WithSuggestion("Make sure git is installed and you are inside a repository: git status")

	ErrGetChangedFiles = NewAppError(TypeGit, "Failed to get changed files", nil).
				WithSuggestion("Verify you have staged changes: git status")

	ErrNoStagedChanges = NewAppError(TypeGit, "No staged changes detected", nil).
				WithSuggestion("Stage your changes first with: git add <files>")

	ErrCreateCommit = NewAppError(TypeGit, "Failed to create commit", nil).
			WithSuggestion("Ensure git user is configured:\n   git config --global user.name \"Your Name\"\n   git config --global user.email \"your@email.com\"")
)

// AI errors
var (
	ErrGenerationFailure = NewAppError(TypeAI, "No suggestions returned by the model", nil).
				WithSuggestion("Try again, or check your API key, model name and network connection")

	ErrBudgetExceeded = NewAppError(TypeAI, "Daily budget exceeded", nil).
				WithSuggestion("Raise budget_daily in the config file or wait until tomorrow")

	ErrUnsupportedProvider = NewAppError(TypeConfiguration, "Generation provider not supported", nil).
				WithSuggestion("Use one of: openai, gemini, ollama")
)

// Configuration errors
var (
	ErrAPIKeyMissing = NewAppError(TypeConfiguration, "AI API key is missing", nil).
				WithSuggestion("Export OPENAI_API_KEY (or GEMINI_API_KEY), or add it to a .env file")

	ErrInvalidConfig = NewAppError(TypeConfiguration, "Invalid configuration", nil).
				WithSuggestion("Check the config file: ai-commit config show")
)

// Input errors
var (
	ErrInvalidSuggestionCount = NewAppError(TypeInput, "Number of suggestions out of range", nil).
					WithSuggestion("Use a value between 1 and 10: ai-commit -n 3")

	ErrNoUserSelection = NewAppError(TypeInput, "No commit message provided", nil)
)

// Internal errors
var (
	ErrAuditWrite = NewAppError(TypeInternal, "Failed to write audit log", nil).
			WithSuggestion("Check that the log directory is writable or pass --log-path")

	ErrUsageLedger = NewAppError(TypeInternal, "Failed to access usage ledger", nil).
			WithSuggestion("Check usage_db in the config file, or set it to \"\" to disable the ledger")
)
