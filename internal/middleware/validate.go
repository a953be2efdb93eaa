package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"
)

// ValidationInterceptor rejects requests whose message fails its
// `validate` struct tags with CodeInvalidArgument.
func ValidationInterceptor(v *validator.Validate) connect.UnaryInterceptorFunc {
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if err := v.Struct(req.Any()); err != nil {
				return nil, connect.NewError(connect.CodeInvalidArgument, describe(err))
			}
			return next(ctx, req)
		}
	}
}

// describe flattens validator errors into one readable message.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
