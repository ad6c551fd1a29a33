// Package audit writes one JSON line per critical action to a per-day log
// file. The files are append-only and never read back by the application;
// they exist for the market owner to reconstruct who did what.
package audit

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType identifies a critical action.
type EventType string

const (
	LoginSuccess       EventType = "LOGIN_SUCCESS"
	LoginFailed        EventType = "LOGIN_FAILED"
	Logout             EventType = "LOGOUT"
	SessionExpired     EventType = "SESSION_EXPIRED"
	UserCreated        EventType = "USER_CREATED"
	UserUpdated        EventType = "USER_UPDATED"
	UserDeleted        EventType = "USER_DELETED"
	ProductCreated     EventType = "PRODUCT_CREATED"
	ProductUpdated     EventType = "PRODUCT_UPDATED"
	ProductDeleted     EventType = "PRODUCT_DELETED"
	SaleCompleted      EventType = "SALE_COMPLETED"
	CashRegisterClosed EventType = "CASH_REGISTER_CLOSED"
	BackupCreated      EventType = "BACKUP_CREATED"
	BackupRestored     EventType = "BACKUP_RESTORED"
	BackupDeleted      EventType = "BACKUP_DELETED"
	AccessDenied       EventType = "ACCESS_DENIED"
)

// Actor is the user attributed to an event. Nil means the action happened
// before authentication (e.g. a failed login).
type Actor struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Logger appends audit events to <dir>/YYYY-MM-DD.log, rolling to a new
// file when the date changes.
type Logger struct {
	mu   sync.Mutex
	dir  string
	day  string
	file *os.File
	sink *zap.Logger
	app  *zap.Logger
}

// New prepares an audit logger rooted at dir. app receives operational
// problems (unwritable directory etc.); audit failures never fail the
// operation being audited.
func New(dir string, app *zap.Logger) *Logger {
	if app == nil {
		app = zap.NewNop()
	}
	return &Logger{dir: dir, app: app}
}

// Record writes one audit event. Safe to call on a nil Logger.
func (l *Logger) Record(event EventType, actor *Actor, details map[string]any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotate(time.Now()); err != nil {
		l.app.Warn("audit log unavailable", zap.Error(err))
		return
	}

	fields := []zap.Field{
		zap.String("event_id", uuid.NewString()),
	}
	if actor != nil {
		fields = append(fields, zap.Object("user", actorMarshaler{actor}))
	} else {
		fields = append(fields, zap.Reflect("user", nil))
	}
	if details == nil {
		details = map[string]any{}
	}
	fields = append(fields, zap.Any("details", details))
	l.sink.Info(string(event), fields...)
}

// Close flushes and closes the current log file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeCurrent()
}

func (l *Logger) rotate(now time.Time) error {
	day := now.Format("2006-01-02")
	if l.sink != nil && day == l.day {
		return nil
	}
	if err := l.closeCurrent(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(l.dir, day+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		MessageKey:  "type",
		LineEnding:  zapcore.DefaultLineEnding,
		EncodeTime:  zapcore.ISO8601TimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(f), zapcore.InfoLevel)

	l.file = f
	l.sink = zap.New(core)
	l.day = day
	return nil
}

func (l *Logger) closeCurrent() error {
	if l.sink == nil {
		return nil
	}
	_ = l.sink.Sync()
	err := l.file.Close()
	l.sink = nil
	l.file = nil
	return err
}

type actorMarshaler struct {
	a *Actor
}

func (m actorMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("id", m.a.ID)
	enc.AddString("username", m.a.Username)
	return nil
}
