package facility

import "testing"

func TestValidPlate(t *testing.T) {
	valid := []string{
		"12가3456",
		"123가3456",
		"99호0001",
	}
	for _, plate := range valid {
		if !ValidPlate(plate) {
			t.Errorf("Expected %q to be a valid plate", plate)
		}
	}

	invalid := []string{
		"",
		"1가3456",     // too few leading digits
		"1234가3456",  // too many leading digits
		"12가345",     // too few trailing digits
		"12가34567",   // too many trailing digits
		"12A3456",    // latin letter
		"12가나3456",   // two letters
		"12 가 3456",  // spaces
		"KA01HH1234", // foreign format
	}
	for _, plate := range invalid {
		if ValidPlate(plate) {
			t.Errorf("Expected %q to be rejected", plate)
		}
	}
}

func TestParseVehicleClass(t *testing.T) {
	tests := []struct {
		input string
		want  VehicleClass
		ok    bool
	}{
		{"", ClassNone, true},
		{"none", ClassNone, true},
		{"compact", ClassCompact, true},
		{"electric", ClassElectric, true},
		{"disabled-permit", ClassDisabled, true},
		{"motorcycle", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseVehicleClass(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseVehicleClass(%q) ok = %v, expected %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseVehicleClass(%q) = %q, expected %q", tt.input, got, tt.want)
		}
	}
}

func TestDiscountRates(t *testing.T) {
	if ClassNone.DiscountRate() != 0 {
		t.Errorf("Expected no discount for ClassNone, got %f", ClassNone.DiscountRate())
	}
	if ClassCompact.DiscountRate() != 0.20 {
		t.Errorf("Expected 0.20 for compact, got %f", ClassCompact.DiscountRate())
	}
	if ClassElectric.DiscountRate() != 0.30 {
		t.Errorf("Expected 0.30 for electric, got %f", ClassElectric.DiscountRate())
	}
	if ClassDisabled.DiscountRate() != 0.40 {
		t.Errorf("Expected 0.40 for disabled-permit, got %f", ClassDisabled.DiscountRate())
	}
}
