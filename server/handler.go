package server

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/go-checkout/config"
	"github.com/gaborage/go-checkout/trace"
)

// APIResponse represents the standardized API response format.
type APIResponse struct {
	Data  any               `json:"data,omitempty"`
	Error *APIErrorResponse `json:"error,omitempty"`
	Meta  map[string]any    `json:"meta"`
}

// APIErrorResponse represents the error portion of an API response.
type APIErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// HandlerFunc is a business handler that receives a bound, validated request.
type HandlerFunc[T any, R any] func(request T, ctx HandlerContext) (R, IAPIError)

// HandlerContext exposes the Echo context and configuration to handlers.
type HandlerContext struct {
	Echo   echo.Context
	Config *config.Config
}

// RequestBinder binds JSON bodies plus path and query parameters to structs.
type RequestBinder struct{}

// NewRequestBinder creates a new request binder.
func NewRequestBinder() *RequestBinder { return &RequestBinder{} }

// WrapHandler adapts a typed handler to Echo. It binds and validates the
// request, invokes the handler and renders the result in the API envelope.
func WrapHandler[T any, R any](handlerFunc HandlerFunc[T, R], binder *RequestBinder, cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		var request T

		if err := binder.bindRequest(c, &request); err != nil {
			return formatErrorResponse(c, NewBadRequestError("Invalid request data").WithDetails("error", err.Error()), cfg)
		}

		if err := c.Validate(&request); err != nil {
			vErr := NewBadRequestError("Request validation failed")
			var ve *ValidationError
			if errors.As(err, &ve) {
				_ = vErr.WithDetails("validationErrors", ve.Errors)
			} else {
				_ = vErr.WithDetails("error", err.Error())
			}
			return formatErrorResponse(c, vErr, cfg)
		}

		response, apiErr := handlerFunc(request, HandlerContext{Echo: c, Config: cfg})
		if apiErr != nil {
			return formatErrorResponse(c, apiErr, cfg)
		}

		if rl, ok := any(response).(ResultLike); ok {
			status, headers, data := rl.ResultMeta()
			return formatSuccessResponse(c, data, status, headers)
		}
		return formatSuccessResponse(c, response, http.StatusOK, nil)
	}
}

func (rb *RequestBinder) bindRequest(c echo.Context, target any) error {
	if ct := c.Request().Header.Get(echo.HeaderContentType); ct != "" && c.Request().ContentLength != 0 {
		if mt, _, _ := mime.ParseMediaType(ct); mt == echo.MIMEApplicationJSON || strings.HasSuffix(mt, "+json") {
			if err := (&echo.DefaultBinder{}).BindBody(c, target); err != nil {
				return fmt.Errorf("failed to bind JSON body: %w", err)
			}
		}
	}

	targetValue := reflect.ValueOf(target).Elem()
	if targetValue.Kind() != reflect.Struct {
		return nil
	}
	targetType := targetValue.Type()

	for i := range targetType.NumField() {
		field := targetType.Field(i)
		fieldValue := targetValue.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		if name := field.Tag.Get("param"); name != "" {
			if value := c.Param(name); value != "" {
				if err := setFieldValue(fieldValue, value); err != nil {
					return fmt.Errorf("failed to set path param %s: %w", name, err)
				}
			}
		}

		if name := field.Tag.Get("query"); name != "" {
			if value := c.QueryParam(name); value != "" {
				if err := setFieldValue(fieldValue, value); err != nil {
					return fmt.Errorf("failed to set query param %s: %w", name, err)
				}
			}
		}
	}
	return nil
}

// setFieldValue converts a raw string into the field's scalar type.
func setFieldValue(fieldValue reflect.Value, value string) error {
	if fieldValue.Kind() == reflect.Ptr {
		if fieldValue.IsNil() {
			fieldValue.Set(reflect.New(fieldValue.Type().Elem()))
		}
		return setFieldValue(fieldValue.Elem(), value)
	}

	switch fieldValue.Kind() {
	case reflect.String:
		fieldValue.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(value, 10, fieldValue.Type().Bits())
		if err != nil {
			return err
		}
		fieldValue.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(value, 10, fieldValue.Type().Bits())
		if err != nil {
			return err
		}
		fieldValue.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(value, fieldValue.Type().Bits())
		if err != nil {
			return err
		}
		fieldValue.SetFloat(v)
	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		fieldValue.SetBool(v)
	default:
		return fmt.Errorf("unsupported field type: %s", fieldValue.Kind())
	}
	return nil
}

func responseMeta(c echo.Context) map[string]any {
	return map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"traceId":   getTraceID(c),
	}
}

// formatSuccessResponse renders data with the given status and extra headers.
func formatSuccessResponse(c echo.Context, data any, status int, headers http.Header) error {
	if status == 0 {
		status = http.StatusOK
	}
	for k, vals := range headers {
		for _, v := range vals {
			c.Response().Header().Add(k, v)
		}
	}
	ensureTraceParentHeader(c)
	return c.JSON(status, APIResponse{Data: data, Meta: responseMeta(c)})
}

// formatErrorResponse renders an API error. Details are only exposed in development.
func formatErrorResponse(c echo.Context, apiErr IAPIError, cfg *config.Config) error {
	errorResp := &APIErrorResponse{
		Code:    apiErr.ErrorCode(),
		Message: apiErr.Message(),
	}
	if isDevelopment(cfg) {
		errorResp.Details = apiErr.Details()
	}

	ensureTraceParentHeader(c)
	return c.JSON(apiErr.HTTPStatus(), APIResponse{Error: errorResp, Meta: responseMeta(c)})
}

// getTraceID resolves the request's correlation ID, generating one when the
// request carries none.
func getTraceID(c echo.Context) string {
	if id, ok := trace.IDFromContext(c.Request().Context()); ok {
		return id
	}
	if id := c.Request().Header.Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	id := trace.EnsureTraceID(c.Request().Context())
	c.Response().Header().Set(echo.HeaderXRequestID, id)
	return id
}

// ensureTraceParentHeader echoes the inbound traceparent or generates one.
func ensureTraceParentHeader(c echo.Context) {
	h := c.Response().Header()
	if h.Get(trace.HeaderTraceParent) != "" {
		return
	}
	if tp := c.Request().Header.Get(trace.HeaderTraceParent); tp != "" {
		h.Set(trace.HeaderTraceParent, tp)
		return
	}
	h.Set(trace.HeaderTraceParent, trace.GenerateTraceParent())
}

// RouteRegistrar abstracts the subset of Echo routing that modules need while
// letting the server enforce the base path.
type RouteRegistrar interface {
	Add(method, path string, handler echo.HandlerFunc, middleware ...echo.MiddlewareFunc) *echo.Route
	Group(prefix string, middleware ...echo.MiddlewareFunc) RouteRegistrar
	Use(middleware ...echo.MiddlewareFunc)
	FullPath(path string) string
}

// HandlerRegistry registers typed handlers sharing one binder and config.
type HandlerRegistry struct {
	binder *RequestBinder
	cfg    *config.Config
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry(cfg *config.Config) *HandlerRegistry {
	return &HandlerRegistry{
		binder: NewRequestBinder(),
		cfg:    cfg,
	}
}

// RegisterHandler wraps handler and adds it to r.
func RegisterHandler[T any, R any](hr *HandlerRegistry, r RouteRegistrar, method, path string, handler HandlerFunc[T, R]) {
	r.Add(method, path, WrapHandler(handler, hr.binder, hr.cfg))
}

// GET registers a GET handler.
func GET[T any, R any](hr *HandlerRegistry, r RouteRegistrar, path string, handler HandlerFunc[T, R]) {
	RegisterHandler(hr, r, http.MethodGet, path, handler)
}

// POST registers a POST handler.
func POST[T any, R any](hr *HandlerRegistry, r RouteRegistrar, path string, handler HandlerFunc[T, R]) {
	RegisterHandler(hr, r, http.MethodPost, path, handler)
}

// ResultLike exposes status, headers, and payload for successful responses.
type ResultLike interface {
	ResultMeta() (status int, headers http.Header, data any)
}

// Result lets handlers choose the status code and headers of a success response.
type Result[R any] struct {
	Data    R
	Status  int
	Headers http.Header
}

// ResultMeta implements ResultLike.
func (r Result[R]) ResultMeta() (status int, headers http.Header, data any) {
	return r.Status, r.Headers, r.Data
}

// Created returns a 201 Created Result for the given data.
func Created[R any](data R) Result[R] {
	return Result[R]{Data: data, Status: http.StatusCreated}
}
