package validation

import (
	"errors"
	"testing"
)

type sample struct {
	ID       string `validate:"required,uuid"`
	Status   string `validate:"required,oneof=skipped submitted"`
	Modality string `validate:"omitempty,modality"`
	Paid     string `validate:"omitempty,boolean"`
}

func TestStruct(t *testing.T) {
	ok := sample{ID: "7b0e4f7e-6c0b-4a8e-9d59-0f5d3c1b9a11", Status: "skipped", Modality: "WFH", Paid: "true"}
	if err := Struct(ok); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	tests := []struct {
		name  string
		in    sample
		field string
	}{
		{"missing id", sample{Status: "skipped"}, "ID"},
		{"bad status", sample{ID: ok.ID, Status: "viewed"}, "Status"},
		{"bad modality", sample{ID: ok.ID, Status: "skipped", Modality: "moon base"}, "Modality"},
		{"bad bool", sample{ID: ok.ID, Status: "skipped", Paid: "maybe"}, "Paid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			var verr *RequestValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected RequestValidationError, got %v", err)
			}
			if len(verr.Fields) != 1 || verr.Fields[0].Field != tt.field {
				t.Fatalf("unexpected fields %+v", verr.Fields)
			}
			if verr.Fields[0].Message == "" {
				t.Fatalf("empty message")
			}
		})
	}
}
