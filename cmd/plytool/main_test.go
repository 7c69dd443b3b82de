package main

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/plyview/internal/engine/wireframe"
)

const cubePLY = "ply\n" +
	"format ascii 1.0\n" +
	"comment unit cube\n" +
	"element vertex 8\n" +
	"property float x\nproperty float y\nproperty float z\n" +
	"element face 6\n" +
	"property list uchar int vertex_indices\n" +
	"end_header\n" +
	"0 0 0\n1 0 0\n1 1 0\n0 1 0\n" +
	"0 0 1\n1 0 1\n1 1 1\n0 1 1\n" +
	"4 0 3 2 1\n4 4 5 6 7\n4 0 1 5 4\n4 2 3 7 6\n4 1 2 6 5\n4 3 0 4 7\n"

const quadPLY = "ply\n" +
	"format ascii 1.0\n" +
	"element vertex 4\n" +
	"property float x\nproperty float y\nproperty float z\n" +
	"property float u\nproperty float v\n" +
	"element face 1\n" +
	"property list uchar int vertex_indices\n" +
	"end_header\n" +
	"0 0 0 0.25 0.25\n1 0 0 0.75 0.25\n1 1 0 0.75 0.75\n0 1 0 0.25 0.75\n" +
	"4 0 1 2 3\n"

func writeModel(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"plytool"}, args...))
	return out.String(), err
}

func TestInfo(t *testing.T) {
	path := writeModel(t, "cube.ply", cubePLY)

	out, err := run(t, "info", path)
	if err != nil {
		t.Fatalf("info: %v", err)
	}

	for _, want := range []string{
		"cube.ply",
		"format:  ascii 1.0",
		"comment unit cube",
		"element vertex (8)",
		"element face (6)",
		"list uchar int",
		"4..4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAttributes(t *testing.T) {
	path := writeModel(t, "cube.ply", cubePLY)

	out, err := run(t, "attributes", "--dump", "2", path)
	if err != nil {
		t.Fatalf("attributes: %v", err)
	}

	for _, want := range []string{
		"vertex-centric layout",
		"faces:       6 (0 skipped)",
		"triangles:   12",
		"slots:       36",
		"normals:     computed",
		"uvs:         no",
		"mids:        0.5 0.5 0.5",
		"slot",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWireframe(t *testing.T) {
	path := writeModel(t, "quad.ply", quadPLY)
	outPath := filepath.Join(t.TempDir(), "uv.png")

	if _, err := run(t, "wireframe", "--size", "64", "--style", "tri", "--out", outPath, path); err != nil {
		t.Fatalf("wireframe: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Errorf("bounds = %v, want 64x64", b)
	}
}

func TestWireframeNoUVs(t *testing.T) {
	path := writeModel(t, "cube.ply", cubePLY)
	outPath := filepath.Join(t.TempDir(), "uv.png")

	_, err := run(t, "wireframe", "--size", "64", "--out", outPath, path)
	if !errors.Is(err, wireframe.ErrNoUVs) {
		t.Fatalf("err = %v, want ErrNoUVs", err)
	}
	if _, statErr := os.Stat(outPath); statErr != nil {
		t.Errorf("placeholder image not written: %v", statErr)
	}
}

func TestMissingArgument(t *testing.T) {
	if _, err := run(t, "info"); err == nil {
		t.Error("info without a file succeeded")
	}
}
