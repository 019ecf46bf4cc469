package audit

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"coop-backoffice/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Audit statuses
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Entry is one audit record handed to the Store. Old/NewValues are
// still live Go values here; the store serializes them.
type Entry struct {
	RequestID   string
	ActorUserID uint
	Action      string
	EntityType  string
	EntityID    uint
	OldValues   interface{}
	NewValues   interface{}
	Status      string
	IPAddress   string
	UserAgent   string
}

// Store persists entries. FAILED entries must be written outside the
// caller's transaction so they survive its rollback.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
}

// Op declares one auditable operation. Action defaults to the
// upper-cased Name when no override is given. Args are scanned for the
// audited entity (pre-state and identity) with bare numeric ids as a
// fallback.
type Op struct {
	Name       string
	Action     string
	EntityType string
	Args       []interface{}
}

type wrappedKey struct{}

// Interceptor wraps business operations and turns each invocation into
// exactly one audit entry: SUCCESS with before/after snapshots, or
// FAILED with the error, after which the original error is returned
// unchanged.
type Interceptor struct {
	store            Store
	logger           zerolog.Logger
	requirePrincipal bool
}

// NewInterceptor creates a new audit interceptor. With requirePrincipal
// set, an operation without a resolvable principal is refused instead
// of running unaudited.
func NewInterceptor(store Store, logger zerolog.Logger, requirePrincipal bool) *Interceptor {
	return &Interceptor{
		store:            store,
		logger:           logger,
		requirePrincipal: requirePrincipal,
	}
}

// Wrap runs fn as an audited operation. Nested Wrap calls log only at
// the outermost level, so applying it twice never double-logs.
func (i *Interceptor) Wrap(ctx context.Context, op Op, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	if ctx.Value(wrappedKey{}) != nil {
		return fn(ctx)
	}

	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		if i.requirePrincipal {
			return nil, domain.ErrUnauditable
		}
		// Availability over auditability: the operation still runs,
		// but the gap is loud.
		i.logger.Warn().Str("operation", op.Name).Msg("no principal in context, operation will not be audited")
		return fn(ctx)
	}

	ctx = context.WithValue(ctx, wrappedKey{}, true)

	action := op.Action
	if action == "" {
		action = strings.ToUpper(op.Name)
	}

	meta := domain.RequestMetaFromContext(ctx)
	requestID := meta.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	entityType, entityID := resolveEntity(op)
	entry := &Entry{
		RequestID:   requestID,
		ActorUserID: principal.UserID,
		EntityType:  entityType,
		EntityID:    entityID,
		OldValues:   CaptureState(op.Args),
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
	}

	defer func() {
		if r := recover(); r != nil {
			entry.Action = action + "_FAILED"
			entry.Status = StatusFailed
			entry.NewValues = map[string]interface{}{
				"error":     fmt.Sprint(r),
				"errorType": "panic",
			}
			i.append(ctx, entry)
			panic(r)
		}
	}()

	result, err := fn(ctx)
	if err != nil {
		entry.Action = action + "_FAILED"
		entry.Status = StatusFailed
		entry.NewValues = map[string]interface{}{
			"error":     err.Error(),
			"errorType": fmt.Sprintf("%T", err),
		}
		i.append(ctx, entry)
		return result, err
	}

	entry.Action = action
	entry.Status = StatusSuccess
	entry.NewValues = CaptureState(result)
	refineFromResult(entry, result, op)

	// A lost SUCCESS entry fails the unit of work: the business write
	// may not commit without its audit evidence.
	if appendErr := i.store.Append(ctx, entry); appendErr != nil {
		return result, fmt.Errorf("audit append for %s: %w", action, appendErr)
	}
	return result, nil
}

// append writes a FAILED entry, logging rather than propagating store
// errors: the caller must still see the original failure.
func (i *Interceptor) append(ctx context.Context, entry *Entry) {
	if err := i.store.Append(ctx, entry); err != nil {
		i.logger.Error().Err(err).Str("action", entry.Action).Msg("failed to append audit entry")
	}
}

// resolveEntity scans args for a domain entity, then for a bare numeric
// id. An explicit Op.EntityType always wins.
func resolveEntity(op Op) (string, uint) {
	var entityType string
	var entityID uint

	for _, a := range op.Args {
		if e, ok := a.(Entity); ok && !isNil(a) {
			entityType = entityTypeName(e)
			entityID = e.EntityID()
			break
		}
	}

	if entityID == 0 {
		for _, a := range op.Args {
			if id, ok := numericID(a); ok {
				entityID = id
				break
			}
		}
	}

	if op.EntityType != "" {
		entityType = op.EntityType
	}
	return entityType, entityID
}

// refineFromResult fills identity gaps from the returned entity, which
// matters for create operations where the id is assigned on insert.
func refineFromResult(entry *Entry, result interface{}, op Op) {
	e, ok := result.(Entity)
	if !ok || isNil(result) {
		return
	}
	if entry.EntityType == "" && op.EntityType == "" {
		entry.EntityType = entityTypeName(e)
	}
	if entry.EntityID == 0 {
		entry.EntityID = e.EntityID()
	}
}

func entityTypeName(e Entity) string {
	t := reflect.TypeOf(e)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

func numericID(v interface{}) (uint, bool) {
	switch n := v.(type) {
	case uint:
		return n, n != 0
	case uint32:
		return uint(n), n != 0
	case uint64:
		return uint(n), n != 0
	case int:
		if n > 0 {
			return uint(n), true
		}
	case int64:
		if n > 0 {
			return uint(n), true
		}
	}
	return 0, false
}
