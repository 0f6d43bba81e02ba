package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test structs
type TestDispatchRequest struct {
	Artist string `json:"artist" validate:"required,min=1,max=200"`
	Track  string `json:"track" validate:"required,min=1,max=200"`
	Mode   string `json:"mode" validate:"querymode"`
}

type TestQueryLookupRequest struct {
	QID string `json:"qid" validate:"required,uuid"`
}

func TestValidateStruct_Success(t *testing.T) {
	req := TestDispatchRequest{Artist: "Radiohead", Track: "Videotape", Mode: "normal"}
	err := ValidateStruct(req)
	assert.NoError(t, err)
}

func TestValidateStruct_RequiredFields(t *testing.T) {
	req := TestDispatchRequest{}
	err := ValidateStruct(req)
	assert.Error(t, err)
}

func TestValidateRequest_Success(t *testing.T) {
	req := TestDispatchRequest{Artist: "Radiohead", Track: "Videotape", Mode: ""}
	errs := ValidateRequest(req)
	assert.Nil(t, errs)
}

func TestValidateRequest_MultipleErrors(t *testing.T) {
	req := TestDispatchRequest{Artist: "", Track: "", Mode: "bogus"}
	errs := ValidateRequest(req)
	assert.NotNil(t, errs)
	assert.Contains(t, errs, "artist")
	assert.Contains(t, errs, "track")
	assert.Contains(t, errs, "mode")
}

func TestValidateQueryMode_Valid(t *testing.T) {
	for _, mode := range []string{"", "normal", "spamme"} {
		req := TestDispatchRequest{Artist: "A", Track: "B", Mode: mode}
		errs := ValidateRequest(req)
		assert.Nil(t, errs, "mode should be valid: %q", mode)
	}
}

func TestValidateQueryMode_Invalid(t *testing.T) {
	for _, mode := range []string{"fast", "NORMAL", "spammed"} {
		req := TestDispatchRequest{Artist: "A", Track: "B", Mode: mode}
		errs := ValidateRequest(req)
		assert.NotNil(t, errs, "mode should be invalid: %q", mode)
		assert.Contains(t, errs, "mode")
	}
}

func TestValidateUUID_Valid(t *testing.T) {
	req := TestQueryLookupRequest{QID: "123e4567-e89b-12d3-a456-426614174000"}
	errs := ValidateRequest(req)
	assert.Nil(t, errs)
}

func TestValidateUUID_Invalid(t *testing.T) {
	invalidUUIDs := []string{"not-a-uuid", "123456", "123e4567-e89b-12d3-a456", ""}
	for _, uuid := range invalidUUIDs {
		req := TestQueryLookupRequest{QID: uuid}
		errs := ValidateRequest(req)
		assert.NotNil(t, errs, "QID should be invalid: %s", uuid)
		assert.Contains(t, errs, "qid")
	}
}

func TestValidateMinMax_Strings(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		shouldErr bool
	}{
		{"valid", "Videotape", false},
		{"too long", string(make([]byte, 201)), true},
		{"min length", "A", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := TestDispatchRequest{Artist: "Radiohead", Track: tt.value, Mode: "normal"}
			errs := ValidateRequest(req)
			if tt.shouldErr {
				assert.NotNil(t, errs)
				assert.Contains(t, errs, "track")
			} else {
				assert.Nil(t, errs)
			}
		})
	}
}

func TestFormatValidationError(t *testing.T) {
	req := TestDispatchRequest{Artist: "", Track: "", Mode: "bogus"}
	errs := ValidateRequest(req)
	assert.NotNil(t, errs)

	for field, msg := range errs {
		assert.NotEmpty(t, msg, "Error message should not be empty for field: %s", field)
		assert.NotContains(t, msg, "Validation failed", "Should use custom error message")
	}
}
