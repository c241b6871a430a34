package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInternal, "request body cannot be replayed")
	suite.NotNil(err)
	suite.Equal(ErrCodeInternal, err.Code)
	suite.Equal("request body cannot be replayed", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeParse, "unknown payload type: %s", "market-data")
	suite.NotNil(err)
	suite.Equal(ErrCodeParse, err.Code)
	suite.Equal("unknown payload type: market-data", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("connection reset by peer")
	err := Wrap(ErrCodeTimeout, "request attempts exhausted", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeTimeout, err.Code)
	suite.Equal("request attempts exhausted", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("unexpected end of JSON input")
	err := Wrapf(ErrCodeParse, cause, "failed to decode %s frame", "order-update")
	suite.NotNil(err)
	suite.Equal(ErrCodeParse, err.Code)
	suite.Equal("failed to decode order-update frame", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeAuthentication, "token endpoint rejected credentials")
	suite.Equal("[100] token endpoint rejected credentials", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeParse, "failed to decode frame", cause)
	suite.Equal("[200] failed to decode frame: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeParse, "failed to decode frame", cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestUnwrapNil() {
	err := New(ErrCodeInternal, "invalid client options")
	suite.Nil(err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeSerialization, "failed to encode body")
	suite.Equal(ErrCodeSerialization, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	cause := New(ErrCodeParse, "failed to decode frame")
	err := Wrap(ErrCodeTimeout, "connection lost", cause)
	// GetCode should return the outermost error's code
	suite.Equal(ErrCodeTimeout, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeThroughFmtWrap() {
	err := fmt.Errorf("listing orders: %w", New(ErrCodeHTTP, "unexpected response status"))
	suite.Equal(ErrCodeHTTP, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromForeignError() {
	err := errors.New("standard error")
	suite.Equal(ErrCodeUnknown, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeAuthentication, "token endpoint rejected credentials")
	suite.True(HasCode(err, ErrCodeAuthentication))
	suite.False(HasCode(err, ErrCodeHTTP))
}

func (suite *ErrorTestSuite) TestKindPredicates() {
	tests := []struct {
		name  string
		code  ErrorCode
		check func(error) bool
	}{
		{name: "authentication", code: ErrCodeAuthentication, check: IsAuthentication},
		{name: "parse", code: ErrCodeParse, check: IsParse},
		{name: "http", code: ErrCodeHTTP, check: IsHTTP},
		{name: "timeout", code: ErrCodeTimeout, check: IsTimeout},
		{name: "internal", code: ErrCodeInternal, check: IsInternal},
		{name: "serialization", code: ErrCodeSerialization, check: IsSerialization},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.True(tt.check(New(tt.code, "boom")))
			suite.False(tt.check(errors.New("boom")))
			suite.False(tt.check(nil))
		})
	}
}

func (suite *ErrorTestSuite) TestIsError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeTimeout, "request attempts exhausted", cause)
	suite.True(Is(err, cause))
}

func (suite *ErrorTestSuite) TestAsError() {
	err := New(ErrCodeInternal, "invalid client options")
	var clientErr *Error
	suite.True(As(err, &clientErr))
	suite.Equal(ErrCodeInternal, clientErr.Code)
}

func (suite *ErrorTestSuite) TestErrorCodeValues() {
	suite.Equal(ErrorCode(1), ErrCodeUnknown)
	suite.Equal(ErrorCode(100), ErrCodeAuthentication)
	suite.Equal(ErrorCode(200), ErrCodeParse)
	suite.Equal(ErrorCode(300), ErrCodeHTTP)
	suite.Equal(ErrorCode(400), ErrCodeTimeout)
	suite.Equal(ErrorCode(500), ErrCodeInternal)
	suite.Equal(ErrorCode(600), ErrCodeSerialization)
}

func (suite *ErrorTestSuite) TestErrorCodeString() {
	suite.Equal("AuthenticationError", ErrCodeAuthentication.String())
	suite.Equal("HttpError", ErrCodeHTTP.String())
	suite.Equal("UnknownError", ErrCodeUnknown.String())
}

func (suite *ErrorTestSuite) TestHTTPError() {
	err := NewHTTPError(http.StatusBadRequest, `{"message":"invalid quantity"}`)
	suite.True(IsHTTP(err))
	suite.Equal(`[300] unexpected response status: Error: 400 - {"message":"invalid quantity"}`, err.Error())

	status, ok := StatusCode(err)
	suite.True(ok)
	suite.Equal(http.StatusBadRequest, status)

	var statusErr *StatusError
	suite.True(As(err, &statusErr))
	suite.Equal(`{"message":"invalid quantity"}`, statusErr.Body)
}

func (suite *ErrorTestSuite) TestStatusCodeMissing() {
	_, ok := StatusCode(New(ErrCodeTimeout, "request attempts exhausted"))
	suite.False(ok)

	_, ok = StatusCode(nil)
	suite.False(ok)
}
