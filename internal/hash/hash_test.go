package hash

import "testing"

func TestURLHashDeterministic(t *testing.T) {
	u := "https://example.com/feed.xml"
	if URLHash(u) != URLHash(u) {
		t.Fatal("same URL should hash identically")
	}
	if len(URLHash(u)) != 12 {
		t.Fatalf("expected 12 hex chars, got %d", len(URLHash(u)))
	}
}

func TestURLHashSensitivity(t *testing.T) {
	// 不做归一化:末尾斜杠、查询参数都会改变哈希
	base := "https://example.com/feed"
	variants := []string{
		base + "/",
		base + "?page=2",
		"http://example.com/feed",
	}
	for _, v := range variants {
		if URLHash(v) == URLHash(base) {
			t.Fatalf("expected different hash for %q vs %q", v, base)
		}
	}
}

func TestArticleHashDeterministic(t *testing.T) {
	h1 := ArticleHash("https://a.com/1", "标题", "Mon, 02 Jan 2006 15:04:05 MST")
	h2 := ArticleHash("https://a.com/1", "标题", "Mon, 02 Jan 2006 15:04:05 MST")
	if h1 != h2 {
		t.Fatal("same triple should hash identically")
	}
	if len(h1) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(h1))
	}
}

func TestArticleHashFieldSensitivity(t *testing.T) {
	base := ArticleHash("link", "title", "date")
	cases := map[string]string{
		"link":  ArticleHash("link2", "title", "date"),
		"title": ArticleHash("link", "title2", "date"),
		"date":  ArticleHash("link", "title", "date2"),
	}
	for field, h := range cases {
		if h == base {
			t.Fatalf("changing %s should change the hash", field)
		}
	}
}

func TestArticleHashMissingFields(t *testing.T) {
	// 缺失字段按空字符串处理,仍然稳定
	h1 := ArticleHash("", "only title", "")
	h2 := ArticleHash("", "only title", "")
	if h1 != h2 {
		t.Fatal("hash with absent fields should still be deterministic")
	}
	if h1 == ArticleHash("", "", "") {
		t.Fatal("title alone should distinguish the hash")
	}
}
