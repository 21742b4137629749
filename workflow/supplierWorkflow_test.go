package workflow

import "testing"

func TestValidateSupplierContacts(t *testing.T) {
	if err := validateSupplierContacts("", ""); err != nil {
		t.Fatalf("empty contacts must pass, got %v", err)
	}
	if err := validateSupplierContacts("compras@medimoc.co.mz", "+258841234567"); err != nil {
		t.Fatalf("valid contacts must pass, got %v", err)
	}
	if err := validateSupplierContacts("not-an-email", ""); err == nil {
		t.Fatal("malformed email must be rejected")
	}
	if err := validateSupplierContacts("", "12"); err == nil {
		t.Fatal("malformed phone must be rejected")
	}
}
