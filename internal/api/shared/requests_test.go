package shared

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decodeTarget struct {
	Name string `json:"name" validate:"required"`
	Age  int    `json:"age" validate:"min=0"`
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    decodeTarget
		wantErr string
	}{
		{name: "valid", body: `{"name":"test","age":30}`, want: decodeTarget{Name: "test", Age: 30}},
		{name: "trailing comma", body: `{"name":"test",}`, wantErr: "invalid character"},
		{name: "empty body", body: "", wantErr: "EOF"},
		{name: "unknown field", body: `{"name":"test","color":"red"}`, wantErr: "unknown field"},
		{name: "two values", body: `{"name":"a"} {"name":"b"}`, wantErr: ErrTrailingData.Error()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tc.body))
			var got decodeTarget
			err := DecodeJSON(httptest.NewRecorder(), req, &got)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

type selfValidating struct{ err error }

func (s selfValidating) Validate() error { return s.err }

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRequest(decodeTarget{Name: "x"}))

	err := ValidateRequest(decodeTarget{Age: 1})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Name", verrs[0].Field())

	custom := errors.New("custom rule")
	assert.Equal(t, custom, ValidateRequest(selfValidating{err: custom}))
	assert.NoError(t, ValidateRequest(selfValidating{}))
}
