package forkydb

import (
	"testing"
)

func TestResolveDSN(t *testing.T) {
	cases := []struct {
		raw        string
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{"dolt://root@localhost/forky?commitname=Forky", "dolt", "root@localhost/forky?commitname=Forky", false},
		{"mysql://root:pw@tcp(localhost:3307)/forky", "mysql", "root:pw@tcp(localhost:3307)/forky", false},
		{"postgres://localhost/forky", "", "", true},
	}
	for _, c := range cases {
		driver, dsn, err := resolveDSN(c.raw)
		if c.wantErr {
			if err == nil {
				t.Errorf("resolveDSN(%q): expected error, got none", c.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("resolveDSN(%q): unexpected error: %v", c.raw, err)
		}
		if driver != c.wantDriver || dsn != c.wantDSN {
			t.Errorf("resolveDSN(%q) = (%q, %q), want (%q, %q)", c.raw, driver, dsn, c.wantDriver, c.wantDSN)
		}
	}
}

func TestListMigrations(t *testing.T) {
	names := ListMigrations()
	if len(names) == 0 {
		t.Fatal("expected at least one registered migration")
	}
	if names[0] != "001_initial_schema" {
		t.Errorf("expected first migration to be 001_initial_schema, got %q", names[0])
	}
}

func TestSnippet(t *testing.T) {
	content := "the decision was to use postgres for storage, not sqlite"
	s := snippet(content, "postgres")
	if s == "" {
		t.Fatal("expected non-empty snippet")
	}
}
