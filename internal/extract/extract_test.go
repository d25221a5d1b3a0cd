package extract

import "testing"

func TestTaxID_ElevenDigitRun(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"meu cpf é 529.982.247-25", "52998224725"},
		{"cpf 52998224725 ok?", "52998224725"},
		{"529 982 247 25", "52998224725"},
	}
	for _, tc := range cases {
		got, ok := TaxID(tc.in)
		if !ok {
			t.Fatalf("%q: expected match", tc.in)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %s, got %s", tc.in, tc.want, got)
		}
	}
}

func TestTaxID_RejectsOtherLengths(t *testing.T) {
	cases := []string{
		"telefone 5511999990000", // 13 digits
		"numero 1234567890",      // 10 digits
		"protocolo 123456789012", // 12 digits
		"sem numero nenhum aqui",
	}
	for _, in := range cases {
		if got, ok := TaxID(in); ok {
			t.Fatalf("%q: expected no match, got %s", in, got)
		}
	}
}

func TestEmail_CaseFolded(t *testing.T) {
	got, ok := Email("meu email é Maria.Silva@Gmail.COM obrigada")
	if !ok {
		t.Fatal("expected match")
	}
	if got != "maria.silva@gmail.com" {
		t.Fatalf("expected lowercase email, got %s", got)
	}
}

func TestEmail_NoMatch(t *testing.T) {
	if _, ok := Email("sem arroba aqui"); ok {
		t.Fatal("expected no match")
	}
}

func TestBudget_UpToWithMilSuffix(t *testing.T) {
	got, ok := Budget("quero um apartamento até 500 mil")
	if !ok {
		t.Fatal("expected match")
	}
	if got.Min != 0 || got.Max != 500_000 {
		t.Fatalf("expected [0, 500000], got [%d, %d]", got.Min, got.Max)
	}
}

func TestBudget_Between(t *testing.T) {
	got, ok := Budget("algo entre 800 mil e 1 milhão")
	if !ok {
		t.Fatal("expected match")
	}
	if got.Min != 800_000 || got.Max != 1_000_000 {
		t.Fatalf("expected [800000, 1000000], got [%d, %d]", got.Min, got.Max)
	}
}

func TestBudget_PlainNumber(t *testing.T) {
	got, ok := Budget("no máximo R$ 450.000")
	if !ok {
		t.Fatal("expected match")
	}
	if got.Max != 450_000 {
		t.Fatalf("expected 450000, got %d", got.Max)
	}
}

func TestBudget_FractionalScale(t *testing.T) {
	got, ok := Budget("até 1,5 milhão")
	if !ok {
		t.Fatal("expected match")
	}
	if got.Max != 1_500_000 {
		t.Fatalf("expected 1500000, got %d", got.Max)
	}
}

func TestBudget_NoMatch(t *testing.T) {
	if _, ok := Budget("oi, tudo bem?"); ok {
		t.Fatal("expected no match")
	}
}

func TestBedrooms(t *testing.T) {
	got, ok := Bedrooms("apartamento de 2 quartos com vaga")
	if !ok || got != 2 {
		t.Fatalf("expected 2, got %d (ok=%v)", got, ok)
	}

	got, ok = Bedrooms("3 dormitórios por favor")
	if !ok || got != 3 {
		t.Fatalf("expected 3, got %d (ok=%v)", got, ok)
	}

	if _, ok := Bedrooms("quero quartos grandes"); ok {
		t.Fatal("no leading integer: expected no match")
	}
}

func TestNeighborhood_Gazetteer(t *testing.T) {
	got, ok := Neighborhood("procurando algo na savassi ou perto")
	if !ok || got != "Savassi" {
		t.Fatalf("expected Savassi, got %q (ok=%v)", got, ok)
	}
}

func TestNeighborhood_BairroFallback(t *testing.T) {
	got, ok := Neighborhood("moro no bairro Ouro Preto atualmente")
	if !ok {
		t.Fatal("expected match")
	}
	if got != "Ouro Preto atualmente" && got != "Ouro Preto" {
		// capture is capped at three words; either boundary is acceptable
		t.Fatalf("unexpected capture %q", got)
	}
}

func TestNeighborhood_NoMatch(t *testing.T) {
	if _, ok := Neighborhood("quero um apartamento grande"); ok {
		t.Fatal("expected no match")
	}
}
