package cudaext

import (
	"errors"
	"strings"
	"testing"
)

func stubLookPath(t *testing.T, available ...string) {
	t.Helper()
	origLookPath := execLookPath
	t.Cleanup(func() { execLookPath = origLookPath })

	execLookPath = func(name string) (string, error) {
		for _, tool := range available {
			if tool == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func TestCheckRequiredToolsAllPresent(t *testing.T) {
	stubLookPath(t, "nvcc", "c++")

	if err := (&NvccBackend{}).CheckTools(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestCheckRequiredToolsUsesAlternatives(t *testing.T) {
	stubLookPath(t, "nvcc", "clang++")

	if err := (&NvccBackend{}).CheckTools(); err != nil {
		t.Fatalf("Expected clang++ to satisfy the host compiler, got %v", err)
	}
}

func TestCheckRequiredToolsSingleMissing(t *testing.T) {
	stubLookPath(t, "g++")

	err := (&NvccBackend{}).CheckTools()
	if err == nil {
		t.Fatal("Expected error for missing nvcc")
	}

	expected := "nvcc (CUDA device compiler) not found in PATH"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestCheckRequiredToolsAllMissing(t *testing.T) {
	stubLookPath(t)

	err := (&NvccBackend{}).CheckTools()
	if err == nil {
		t.Fatal("Expected error when no tools are available")
	}
	if !strings.HasPrefix(err.Error(), "missing required tools: nvcc") {
		t.Errorf("Unexpected message: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "c++ (C++ host compiler for the binding code)") {
		t.Errorf("Expected host compiler in message: %s", err.Error())
	}
}

func TestCheckRequiredToolsOptional(t *testing.T) {
	stubLookPath(t, "nvcc")

	err := CheckRequiredTools([]ToolRequirement{
		{Name: "nvcc"},
		{Name: "ccache", Optional: true, Purpose: "Compiler cache"},
	})
	if err != nil {
		t.Errorf("Optional tools should not fail the check, got %v", err)
	}
}
