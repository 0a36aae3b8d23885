package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %s, want %s", got, want)
	}
}

func TestJSON_MapOrderIndependent(t *testing.T) {
	a, err := JSON(map[string]int{"aria": 1, "kael": 2, "varn": 3})
	if err != nil {
		t.Fatal(err)
	}
	b, err := JSON(map[string]int{"varn": 3, "kael": 2, "aria": 1})
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("equal maps hashed differently: %s != %s", a, b)
	}
	if c, _ := JSON(map[string]int{"aria": 2}); c == a {
		t.Error("different values hashed equally")
	}
}

func TestJSON_Unencodable(t *testing.T) {
	if _, err := JSON(make(chan int)); err == nil {
		t.Error("expected error for channel")
	}
}
