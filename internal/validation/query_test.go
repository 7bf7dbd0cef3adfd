package validation

import "testing"

func TestValidateListQueryDefaults(t *testing.T) {
	q, fields := ValidateListQuery(ListQueryParams{}, 20, 100)
	if len(fields) != 0 {
		t.Fatalf("ValidateListQuery() = %v, want no errors", fields)
	}
	if q.Page != 1 || q.Limit != 20 {
		t.Errorf("page/limit = %d/%d, want 1/20", q.Page, q.Limit)
	}
	if q.SortBy != "createdAt" || q.SortOrder != "desc" {
		t.Errorf("sort = %s %s, want createdAt desc", q.SortBy, q.SortOrder)
	}
	if q.Offset() != 0 {
		t.Errorf("Offset() = %d, want 0", q.Offset())
	}
}

func TestValidateListQuery(t *testing.T) {
	tests := []struct {
		name      string
		params    ListQueryParams
		wantField string
	}{
		{"all valid", ListQueryParams{Page: "2", Limit: "50", Search: "alice", Status: "active", SortBy: "name", SortOrder: "asc"}, ""},
		{"page zero", ListQueryParams{Page: "0"}, "page"},
		{"page negative", ListQueryParams{Page: "-1"}, "page"},
		{"page not a number", ListQueryParams{Page: "abc"}, "page"},
		{"limit zero", ListQueryParams{Limit: "0"}, "limit"},
		{"limit not a number", ListQueryParams{Limit: "lots"}, "limit"},
		{"bad status", ListQueryParams{Status: "deleted"}, "status"},
		{"bad sortBy", ListQueryParams{SortBy: "phone"}, "sortBy"},
		{"bad sortOrder", ListQueryParams{SortOrder: "sideways"}, "sortOrder"},
		{"archived status allowed", ListQueryParams{Status: "archived"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, fields := ValidateListQuery(tt.params, 20, 100)
			if tt.wantField == "" {
				if len(fields) != 0 {
					t.Errorf("ValidateListQuery() = %v, want no errors", fields)
				}
				return
			}
			found := false
			for _, f := range fields {
				if f.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("ValidateListQuery() = %v, want error on field %q", fields, tt.wantField)
			}
		})
	}
}

func TestValidateListQueryClampsLimit(t *testing.T) {
	q, fields := ValidateListQuery(ListQueryParams{Limit: "500"}, 20, 100)
	if len(fields) != 0 {
		t.Fatalf("ValidateListQuery() = %v, want no errors", fields)
	}
	if q.Limit != 100 {
		t.Errorf("limit = %d, want clamped to 100", q.Limit)
	}
}

func TestListQueryOffset(t *testing.T) {
	q := ListQuery{Page: 3, Limit: 20}
	if q.Offset() != 40 {
		t.Errorf("Offset() = %d, want 40", q.Offset())
	}
}
