package lm

import (
	"io/ioutil"
	"os"
	"testing"
)

func TestFromARPAFile(t *testing.T) {
	f, err := ioutil.TempFile("", "arpa.")
	if err != nil {
		t.Fatalf("error in creating temporary file: %v", err)
	}
	p := f.Name()
	if _, err := f.WriteString(simpleTrigramARPA); err != nil {
		t.Fatalf("error writing ARPA fixture: %v", err)
	}
	f.Close()
	defer os.Remove(p)

	model, err := FromARPAFile(p, 0)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	sentTest(model, simpleTrigramSents, t)
}

func TestHashedBinary(t *testing.T) {
	model := readyBuilder(simpleTrigramLM).DumpHashed(0)

	f, err := ioutil.TempFile("", "binary.")
	if err != nil {
		t.Fatalf("error in creating temporary file: %v", err)
	}
	path := f.Name()
	f.Close()
	defer func() {
		os.Remove(path)
	}()

	if err := model.WriteBinary(path); err != nil {
		t.Fatalf("error in writing binary: %v", err)
	}

	kind, modelI, backing, err := FromBinary(path)
	if err != nil {
		t.Fatalf("error in loading binary: %v", err)
	}

	if kind != ModelHashed {
		t.Fatalf("expect kind %d; got %d", ModelHashed, kind)
	}

	sentTest(modelI.(*Hashed), simpleTrigramSents, t)

	modelI = nil
	if err := backing.Close(); err != nil {
		t.Errorf("error in closing mapped file: %v", err)
	}
}

func TestSortedBinary(t *testing.T) {
	model := readyBuilder(simpleTrigramLM).DumpSorted()

	f, err := ioutil.TempFile("", "binary.")
	if err != nil {
		t.Fatalf("error in creating temporary file: %v", err)
	}
	path := f.Name()
	f.Close()
	defer func() {
		os.Remove(path)
	}()

	if err := model.WriteBinary(path); err != nil {
		t.Fatalf("error in writing binary: %v", err)
	}

	kind, modelI, backing, err := FromBinary(path)
	if err != nil {
		t.Fatalf("error in loading binary: %v", err)
	}

	if kind != ModelSorted {
		t.Fatalf("expect kind %d; got %d", ModelSorted, kind)
	}

	sentTest(modelI.(*Sorted), simpleTrigramSents, t)

	modelI = nil
	if err := backing.Close(); err != nil {
		t.Errorf("error in closing mapped file: %v", err)
	}
}
