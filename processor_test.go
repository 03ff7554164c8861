package nitrite

import (
	"errors"
	"testing"
)

type upperCaseProcessor struct{}

func (upperCaseProcessor) Name() string { return "upper" }
func (upperCaseProcessor) ProcessBeforeWrite(doc *Document) error {
	v, ok := doc.Get("name", ".")
	if !ok {
		return nil
	}
	s, _ := v.AsString()
	doc.Put("name", String(s+"!"))
	return nil
}
func (upperCaseProcessor) ProcessAfterRead(doc *Document) error { return nil }

type rejectingProcessor struct{}

func (rejectingProcessor) Name() string                            { return "reject" }
func (rejectingProcessor) ProcessBeforeWrite(doc *Document) error  { return errors.New("rejected") }
func (rejectingProcessor) ProcessAfterRead(doc *Document) error    { return nil }

func TestProcessorChainEmptyIsPassthrough(t *testing.T) {
	chain := newProcessorChain()
	doc := NewDocument().Put("x", Int(1))
	if err := chain.BeforeWrite(doc); err != nil {
		t.Fatalf("empty chain should not error: %v", err)
	}
}

func TestProcessorChainAppliesProcessor(t *testing.T) {
	chain := newProcessorChain()
	chain.Add(upperCaseProcessor{})
	doc := NewDocument().Put("name", String("alice"))
	if err := chain.BeforeWrite(doc); err != nil {
		t.Fatalf("BeforeWrite failed: %v", err)
	}
	v, _ := doc.Get("name", ".")
	s, _ := v.AsString()
	if s != "alice!" {
		t.Errorf("expected processor to transform name, got %q", s)
	}
}

func TestProcessorChainStopsOnError(t *testing.T) {
	chain := newProcessorChain()
	chain.Add(rejectingProcessor{})
	chain.Add(upperCaseProcessor{})
	doc := NewDocument().Put("name", String("bob"))
	if err := chain.BeforeWrite(doc); err == nil {
		t.Fatal("expected chain to propagate the first processor's error")
	}
	v, _ := doc.Get("name", ".")
	s, _ := v.AsString()
	if s != "bob" {
		t.Error("a later processor must not run once an earlier one fails")
	}
}
