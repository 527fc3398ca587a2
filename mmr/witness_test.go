package mmr

import "testing"

func TestWitnessMarkSpentUnspent(t *testing.T) {
	w := NewWitness()
	w.MarkUnspent(5)
	if !w.IsUnspent(5) {
		t.Fatal("expected index 5 to be unspent after MarkUnspent")
	}
	w.MarkSpent(5)
	if w.IsUnspent(5) {
		t.Fatal("expected index 5 to be spent after MarkSpent")
	}
}

func TestWitnessSerializationRoundTrip(t *testing.T) {
	w := NewWitness()
	for _, i := range []uint64{1, 2, 3, 100, 100000} {
		w.MarkUnspent(i)
	}
	w.MarkSpent(2)

	b, err := w.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	restored, err := WitnessFromBytes(b)
	if err != nil {
		t.Fatal(err)
	}
	for _, i := range []uint64{1, 3, 100, 100000} {
		if !restored.IsUnspent(i) {
			t.Fatalf("expected %d unspent after round trip", i)
		}
	}
	if restored.IsUnspent(2) {
		t.Fatal("expected 2 to remain spent after round trip")
	}
}

func TestOutputMerkleRootChangesWithWitness(t *testing.T) {
	store := NewMemoryStore()
	for i := 0; i < 4; i++ {
		if _, err := AppendLeaf(store, 0x03, []byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}
	root, err := Root(store, store.Size())
	if err != nil {
		t.Fatal(err)
	}

	w1 := NewWitness()
	w1.MarkUnspent(0)
	w1.MarkUnspent(1)

	w2 := w1.Clone()
	w2.MarkSpent(0)

	r1, err := OutputMerkleRoot(root, w1)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := OutputMerkleRoot(root, w2)
	if err != nil {
		t.Fatal(err)
	}
	if r1 == r2 {
		t.Fatal("OutputMerkleRoot did not change when the witness bitmap changed")
	}
}
