package nitrite

import "testing"

func TestSortDocumentsAscendingDescending(t *testing.T) {
	docs := []*Document{
		NewDocument().Put("age", Int(30)).Put("name", String("bob")),
		NewDocument().Put("age", Int(20)).Put("name", String("alice")),
		NewDocument().Put("age", Int(25)).Put("name", String("carl")),
	}

	sortDocuments(docs, []SortSpec{{Field: "age", Order: Ascending}}, ".")
	ages := []int64{20, 25, 30}
	for i, want := range ages {
		v, _ := docs[i].Get("age", ".")
		got, _ := v.AsInt()
		if got != want {
			t.Fatalf("ascending sort: position %d = %d, want %d", i, got, want)
		}
	}

	sortDocuments(docs, []SortSpec{{Field: "age", Order: Descending}}, ".")
	agesDesc := []int64{30, 25, 20}
	for i, want := range agesDesc {
		v, _ := docs[i].Get("age", ".")
		got, _ := v.AsInt()
		if got != want {
			t.Fatalf("descending sort: position %d = %d, want %d", i, got, want)
		}
	}
}

func TestSortDocumentsMultiKeyTieBreak(t *testing.T) {
	docs := []*Document{
		NewDocument().Put("team", String("a")).Put("rank", Int(2)),
		NewDocument().Put("team", String("a")).Put("rank", Int(1)),
		NewDocument().Put("team", String("b")).Put("rank", Int(1)),
	}
	sortDocuments(docs, []SortSpec{
		{Field: "team", Order: Ascending},
		{Field: "rank", Order: Ascending},
	}, ".")

	want := []struct {
		team string
		rank int64
	}{{"a", 1}, {"a", 2}, {"b", 1}}
	for i, w := range want {
		tv, _ := docs[i].Get("team", ".")
		team, _ := tv.AsString()
		rv, _ := docs[i].Get("rank", ".")
		rank, _ := rv.AsInt()
		if team != w.team || rank != w.rank {
			t.Fatalf("position %d = (%s,%d), want (%s,%d)", i, team, rank, w.team, w.rank)
		}
	}
}
