package compiler_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/illusionfield/scssc/pkg/compiler"
)

func TestBatchKeys(t *testing.T) {
	b := compiler.NewBatch(
		&compiler.File{PathInPackage: "styles/ui.scss", PackageName: "ui"},
		&compiler.File{PathInPackage: "z.scss", PackageName: "base"},
		&compiler.File{PathInPackage: "client/main.scss"},
		&compiler.File{PathInPackage: "a.scss"},
		&compiler.File{PathInPackage: "styles/_buttons.scss", PackageName: "ui"},
	)

	exp := []string{
		"{}/a.scss",
		"{}/client/main.scss",
		"{base}/z.scss",
		"{ui}/styles/_buttons.scss",
		"{ui}/styles/ui.scss",
	}
	if diff := cmp.Diff(exp, b.Keys()); diff != "" {
		t.Fatalf("unexpected key order (-want, +got):\n%s", diff)
	}
}
