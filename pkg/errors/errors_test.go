package errors

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestAppError_Codes(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   Code
		status int
	}{
		{"输入无效", InvalidInput("variant", "缺失"), CodeInvalidInput, http.StatusBadRequest},
		{"非法边", MalformedEdge(3, "cost 为负"), CodeMalformedEdge, http.StatusBadRequest},
		{"无可行解", NoFeasibleSolution("容量不足"), CodeNoFeasibleSolution, http.StatusUnprocessableEntity},
		{"内部一致性", InternalConsistency(1, "负载超限"), CodeInternalConsistency, http.StatusInternalServerError},
		{"不支持的类型", UnsupportedVariant("pdp"), CodeUnsupportedVariant, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !Is(tt.err, tt.code) {
				t.Errorf("Is(%v) = false, expected code %s", tt.err, tt.code)
			}
			if GetCode(tt.err) != tt.code {
				t.Errorf("GetCode() = %s, expected %s", GetCode(tt.err), tt.code)
			}
			if GetHTTPStatus(tt.err) != tt.status {
				t.Errorf("GetHTTPStatus() = %d, expected %d", GetHTTPStatus(tt.err), tt.status)
			}
		})
	}
}

func TestMalformedEdge_NamesField(t *testing.T) {
	err := MalformedEdge(7, "索引越界")
	if FieldOf(err) != "edges[7]" {
		t.Errorf("FieldOf() = %q, expected edges[7]", FieldOf(err))
	}
}

func TestWrap_Unwrap(t *testing.T) {
	err := Wrap(context.Canceled, CodeTimeout, "求解被取消")
	if !errors.Is(err, context.Canceled) {
		t.Error("Wrap should keep the cause reachable via errors.Is")
	}
	if GetCode(context.Canceled) != CodeUnknown {
		t.Error("plain errors should map to CodeUnknown")
	}
}

func TestValidationErrors_ToAppError(t *testing.T) {
	ve := &ValidationErrors{}
	if ve.HasErrors() {
		t.Fatal("empty collection should have no errors")
	}

	ve.Add("depot_indices", "不能为空")
	ve.Addf("demands[2]", "需求不能为负: %d", -1)

	err := ve.ToAppError()
	if err.Code != CodeValidationFail {
		t.Errorf("Code = %s, expected %s", err.Code, CodeValidationFail)
	}
	if FieldOf(err) != "depot_indices" {
		t.Errorf("FieldOf() = %q, expected depot_indices", FieldOf(err))
	}
	if _, ok := err.Fields["demands[2]"]; !ok {
		t.Error("every offending field should be listed")
	}
}
