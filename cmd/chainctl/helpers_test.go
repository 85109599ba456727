package main

import (
	"reflect"
	"testing"
)

func TestParseVarFlags(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{"empty", nil, nil, false},
		{"single", []string{"topic=mars"}, map[string]string{"topic": "mars"}, false},
		{"value with equals", []string{"q=a=b"}, map[string]string{"q": "a=b"}, false},
		{"empty value", []string{"flag="}, map[string]string{"flag": ""}, false},
		{"missing equals", []string{"topic"}, nil, true},
		{"empty key", []string{"=mars"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVarFlags(tt.pairs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseVarFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseVarFlags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeVars(t *testing.T) {
	base := map[string]string{"a": "1", "b": "2"}
	override := map[string]string{"b": "3", "c": "4"}

	got := mergeVars(base, override)
	want := map[string]string{"a": "1", "b": "3", "c": "4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mergeVars() = %v, want %v", got, want)
	}

	if mergeVars(nil, nil) != nil {
		t.Error("mergeVars(nil, nil) should be nil")
	}
}
