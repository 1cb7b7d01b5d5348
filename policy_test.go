package wred

import (
	"errors"
	"math"
	"testing"
)

func TestPolicyTableDerivation(t *testing.T) {
	// maxThreshold 40 over 4 classes: base min 20, step (40-20)//4 = 5
	pt, err := CreatePolicyTable(4, 40)
	if err != nil {
		t.Fatalf("CreatePolicyTable failed: %v", err)
	}

	expected := []struct {
		class    int
		min, max float64 // fractions of the queue limit
	}{
		{0, 0.20, 0.40},
		{1, 0.25, 0.40},
		{2, 0.30, 0.40},
		{3, 0.35, 0.40},
	}

	for _, tt := range expected {
		tp, err := pt.Lookup(tt.class)
		if err != nil {
			t.Fatalf("Lookup(%d) failed: %v", tt.class, err)
		}
		if math.Abs(tp.MinThreshold-tt.min) > 1e-12 || math.Abs(tp.MaxThreshold-tt.max) > 1e-12 {
			t.Errorf("class %d thresholds (%f,%f), want (%f,%f)",
				tt.class, tp.MinThreshold, tp.MaxThreshold, tt.min, tt.max)
		}
	}
}

func TestPolicyTableBinding(t *testing.T) {
	pt, err := CreatePolicyTable(4, 40)
	if err != nil {
		t.Fatalf("CreatePolicyTable failed: %v", err)
	}

	// scaled to a queue limit of 1000 units the pairs become
	// {200,400},{250,400},{300,400},{350,400}
	bound := pt.bindAll(1000.0)
	wantMin := []float64{200.0, 250.0, 300.0, 350.0}
	for class := 0; class < 4; class++ {
		tp := bound[class]
		if math.Abs(tp.MinThreshold-wantMin[class]) > 1e-9 {
			t.Errorf("class %d bound min %f, want %f", class, tp.MinThreshold, wantMin[class])
		}
		if math.Abs(tp.MaxThreshold-400.0) > 1e-9 {
			t.Errorf("class %d bound max %f, want 400", class, tp.MaxThreshold)
		}
	}
}

func TestPolicyTableSharedMinimums(t *testing.T) {
	// more classes than percentage points in the band: the step rounds to
	// zero and every class shares the base minimum threshold
	pt, err := CreatePolicyTable(30, 40)
	if err != nil {
		t.Fatalf("CreatePolicyTable failed: %v", err)
	}
	for class := 0; class < 30; class++ {
		tp, err := pt.Lookup(class)
		if err != nil {
			t.Fatalf("Lookup(%d) failed: %v", class, err)
		}
		if math.Abs(tp.MinThreshold-0.20) > 1e-12 {
			t.Errorf("class %d min %f, want shared 0.20", class, tp.MinThreshold)
		}
	}
}

func TestPolicyTableConfigurationErrors(t *testing.T) {
	cases := []struct {
		desc          string
		numPriorities int
		maxThreshold  int
	}{
		{"zero classes", 0, 40},
		{"negative classes", -3, 40},
		{"threshold above 100", 8, 120},
		{"negative threshold", 8, -1},
	}
	for _, tt := range cases {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := CreatePolicyTable(tt.numPriorities, tt.maxThreshold)
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("CreatePolicyTable(%d,%d) error %v, want ErrConfiguration",
					tt.numPriorities, tt.maxThreshold, err)
			}
		})
	}
}

func TestAddPolicyRejectsDisorderedPair(t *testing.T) {
	pt, _ := CreatePolicyTable(2, 40)
	err := pt.AddPolicy(0, 50, 40)
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("AddPolicy(0,50,40) error %v, want ErrConfiguration", err)
	}
}

func TestLookupUnknownClass(t *testing.T) {
	pt, _ := CreatePolicyTable(4, 40)
	_, err := pt.Lookup(7)
	if !errors.Is(err, ErrUnknownPriorityClass) {
		t.Errorf("Lookup(7) error %v, want ErrUnknownPriorityClass", err)
	}
}

func TestValidatePriorities(t *testing.T) {
	pt, _ := CreatePolicyTable(8, 40)

	good := map[int]int{1: 0, 2: 3, 3: 7}
	if err := pt.validatePriorities(good); err != nil {
		t.Errorf("valid assignment rejected: %v", err)
	}

	bad := map[int]int{1: 0, 2: 9}
	err := pt.validatePriorities(bad)
	if !errors.Is(err, ErrUnknownPriorityClass) {
		t.Errorf("assignment to class 9 gave %v, want ErrUnknownPriorityClass", err)
	}
}
