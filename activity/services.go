package activity

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/flowforge/flowforge/expr"
)

// Clock abstracts time.Now for handlers that read the current time. It has
// no timer or sleep method: the delay built-in waits on a real timer.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock is the production Clock backed by time.Now.
var SystemClock Clock = systemClock{}

// Services is a narrow locator exposing only what built-in handlers need: an
// HTTP client, the expression evaluator, a logger scoped to the current
// activity attempt, and a clock. A new handler kind that needs something
// else extends Services explicitly — never resolves a dependency through an
// ambient or global lookup.
type Services struct {
	HTTPClient *http.Client
	Scripted   *expr.Scripted
	Logger     *zap.Logger
	Clock      Clock
}

// NewServices builds a Services with production defaults for any field left
// at its zero value.
func NewServices(httpClient *http.Client, scripted *expr.Scripted, logger *zap.Logger) *Services {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if scripted == nil {
		scripted = expr.NewScripted()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Services{
		HTTPClient: httpClient,
		Scripted:   scripted,
		Logger:     logger,
		Clock:      SystemClock,
	}
}

// Scoped returns a copy of s whose Logger carries fields identifying the
// current activity attempt.
func (s *Services) Scoped(instanceID, activityID string, attempt int) *Services {
	cp := *s
	cp.Logger = s.Logger.With(
		zap.String("instance_id", instanceID),
		zap.String("activity_id", activityID),
		zap.Int("attempt", attempt),
	)
	return &cp
}
