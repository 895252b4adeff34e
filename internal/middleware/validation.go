package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "evintel/internal/errors"
	"evintel/pkg/contracts/domain"
)

// QueryParamValidator parses query parameters and validates the api/v1
// request contracts against their struct tags.
type QueryParamValidator struct {
	validate     *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

func NewQueryParamValidator(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *QueryParamValidator {
	v := validator.New()
	v.RegisterValidation("vehicle_category", func(fl validator.FieldLevel) bool {
		return domain.VehicleCategory(fl.Field().String()).IsValid()
	})
	// Error messages name the json field the caller sent, not the Go one.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &QueryParamValidator{
		validate:     v,
		logger:       logger.With(slog.String("component", "query_validator")),
		errorHandler: errorHandler,
	}
}

// ValidateInt reads an integer query parameter, falling back to the
// default when absent. The second return is false when a problem
// response was already written.
func (v *QueryParamValidator) ValidateInt(w http.ResponseWriter, r *http.Request, param string, min, max, defaultValue int) (int, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return defaultValue, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, param+" must be a valid integer"))
		return 0, false
	}
	if value < min || value > max {
		v.errorHandler.HandleError(w, r,
			apierrors.ErrValidation(param, fmt.Sprintf("%s must be between %d and %d", param, min, max)))
		return 0, false
	}
	return value, true
}

// ValidateRequest checks a request contract against its validate tags
// and writes a 400 problem listing every failed field. Returns false
// when the response was written.
func (v *QueryParamValidator) ValidateRequest(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	err := v.validate.Struct(req)
	if err == nil {
		return true
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		v.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return false
	}

	errs := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}

	v.logger.DebugContext(r.Context(), "request validation failed",
		slog.Int("fields", len(errs)))
	v.errorHandler.HandleError(w, r, apierrors.NewValidationErrors(errs))
	return false
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return fmt.Sprintf("%s must be an ISO date (YYYY-MM-DD)", fe.Field())
	case "vehicle_category":
		categories := make([]string, 0, 2)
		for _, c := range domain.AllCategories() {
			categories = append(categories, string(c))
		}
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.Join(categories, ", "))
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
