package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-academy/internal/catalog"
)

func TestLoad_BundledContent(t *testing.T) {
	c, err := catalog.Load(filepath.Join("..", "..", "content"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cats := c.Categories()
	if len(cats) != 10 {
		t.Fatalf("Categories() = %d, want 10", len(cats))
	}
	if cats[0].ID != "ai_basics" || cats[1].ID != "how_ai_learns" {
		t.Errorf("first categories = %s, %s", cats[0].ID, cats[1].ID)
	}
	for i := 1; i < len(cats); i++ {
		if cats[i].Order < cats[i-1].Order {
			t.Errorf("categories not ordered at %d", i)
		}
	}
	if got := c.LessonCount("ai_basics"); got != 6 {
		t.Errorf("LessonCount(ai_basics) = %d, want 6", got)
	}
	hal, _ := c.Category("how_ai_learns")
	if hal.Unlock.Kind != catalog.UnlockCompleteCategory || hal.Unlock.CategoryID != "ai_basics" {
		t.Errorf("how_ai_learns unlock = %+v", hal.Unlock)
	}

	for _, cat := range cats {
		for _, l := range cat.Lessons {
			for _, q := range l.Questions {
				if !q.Check(correctAnswer(q)) {
					t.Errorf("question %s does not accept its own answer", q.ID)
				}
			}
		}
	}
}

func correctAnswer(q catalog.Question) string {
	switch q.Type {
	case catalog.SortOrder:
		out := ""
		for i, a := range q.CorrectAnswers {
			if i > 0 {
				out += catalog.SortSeparator
			}
			out += a
		}
		return out
	case catalog.MatchPairs:
		return catalog.MatchedAnswer
	default:
		return q.CorrectAnswer
	}
}

func TestCatalog_Lookups(t *testing.T) {
	c := writeAndLoad(t)

	l, ok := c.Lesson("t_l2")
	if !ok {
		t.Fatal("Lesson(t_l2) not found")
	}
	if l.CategoryID != "test_cat" {
		t.Errorf("CategoryID = %q, want test_cat", l.CategoryID)
	}

	next, ok := c.NextLesson("t_l1")
	if !ok || next.ID != "t_l2" {
		t.Errorf("NextLesson(t_l1) = %q,%v want t_l2", next.ID, ok)
	}
	if _, ok := c.NextLesson("t_l2"); ok {
		t.Error("NextLesson(last) should be false")
	}

	lessons := c.LessonsForCategory("test_cat")
	if len(lessons) != 2 || lessons[0].ID != "t_l1" {
		t.Errorf("LessonsForCategory() = %v, want ordered t_l1, t_l2", lessons)
	}
}

func TestCatalog_UnknownIDs(t *testing.T) {
	c := writeAndLoad(t)

	if _, ok := c.Category("nope"); ok {
		t.Error("Category(nope) should be false")
	}
	if _, ok := c.Lesson("nope"); ok {
		t.Error("Lesson(nope) should be false")
	}
	if _, ok := c.NextLesson("nope"); ok {
		t.Error("NextLesson(nope) should be false")
	}
	if got := c.LessonsForCategory("nope"); got != nil {
		t.Errorf("LessonsForCategory(nope) = %v, want nil", got)
	}
	if got := c.LessonCount("nope"); got != 0 {
		t.Errorf("LessonCount(nope) = %d, want 0", got)
	}
}

func TestLoad_SkipsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.yaml", validCategory)
	writeFile(t, dir, "broken.yaml", "id: [unclosed")
	writeFile(t, dir, "bad-schema.yaml", "id: Bad-Id\nname: x\norder: 0\nlessons: []\n")
	writeFile(t, dir, "notes.md", "# not yaml")

	c, err := catalog.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := len(c.Categories()); got != 1 {
		t.Errorf("Categories() = %d, want 1", got)
	}
}

func TestLoad_DuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", validCategory)
	writeFile(t, dir, "b.yaml", validCategory)

	if _, err := catalog.Load(dir); err == nil {
		t.Error("Load() should fail on duplicate ids")
	}
}

func TestLoad_MissingDir(t *testing.T) {
	if _, err := catalog.Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Load() should fail for a missing directory")
	}
}

func TestLoad_EmptyDir(t *testing.T) {
	c, err := catalog.Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(c.Categories()) != 0 {
		t.Error("empty dir should give an empty catalog")
	}
}

func TestFingerprint_ChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", validCategory)
	c1, err := catalog.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := catalog.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if c1.Fingerprint() != c2.Fingerprint() || c1.Fingerprint() == "" {
		t.Errorf("fingerprint unstable: %q vs %q", c1.Fingerprint(), c2.Fingerprint())
	}

	writeFile(t, dir, "a.yaml", validCategory+"description: changed\n")
	c3, err := catalog.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if c3.Fingerprint() == c1.Fingerprint() {
		t.Error("fingerprint should change when content changes")
	}
}

func TestNew_DefaultsMinLessons(t *testing.T) {
	c, err := catalog.New(
		catalog.Category{ID: "a", Order: 0, Lessons: []catalog.Lesson{{ID: "a1"}}},
		catalog.Category{ID: "b", Order: 1,
			Unlock:  catalog.UnlockRequirement{Kind: catalog.UnlockCategoryMinimum, CategoryID: "a"},
			Lessons: []catalog.Lesson{{ID: "b1"}}},
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	b, _ := c.Category("b")
	if b.Unlock.MinLessons != catalog.DefaultMinLessons {
		t.Errorf("MinLessons = %d, want %d", b.Unlock.MinLessons, catalog.DefaultMinLessons)
	}
	a, _ := c.Category("a")
	if a.Unlock.Kind != catalog.UnlockNone {
		t.Errorf("empty unlock kind = %q, want none", a.Unlock.Kind)
	}
}

func TestNextLesson_FollowsPosition(t *testing.T) {
	c, err := catalog.New(catalog.Category{ID: "gaps", Lessons: []catalog.Lesson{
		{ID: "g3", Order: 30},
		{ID: "g1", Order: 10},
		{ID: "g2", Order: 20},
	}})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		id   string
		want string
		ok   bool
	}{
		{"g1", "g2", true},
		{"g2", "g3", true},
		{"g3", "", false},
	}
	for _, tt := range tests {
		next, ok := c.NextLesson(tt.id)
		if ok != tt.ok || next.ID != tt.want {
			t.Errorf("NextLesson(%s) = %q,%v want %q,%v", tt.id, next.ID, ok, tt.want, tt.ok)
		}
	}
}

func TestQuestion_Check(t *testing.T) {
	tests := []struct {
		name   string
		q      catalog.Question
		answer string
		want   bool
	}{
		{"mc-correct", catalog.Question{Type: catalog.MultipleChoice, CorrectAnswer: "A"}, "A", true},
		{"mc-wrong", catalog.Question{Type: catalog.MultipleChoice, CorrectAnswer: "A"}, "B", false},
		{"tf", catalog.Question{Type: catalog.TrueFalse, CorrectAnswer: "False"}, "False", true},
		{"sort-correct", catalog.Question{Type: catalog.SortOrder, CorrectAnswers: []string{"x", "y"}}, "x||y", true},
		{"sort-wrong", catalog.Question{Type: catalog.SortOrder, CorrectAnswers: []string{"x", "y"}}, "y||x", false},
		{"match", catalog.Question{Type: catalog.MatchPairs}, "matched", true},
		{"match-partial", catalog.Question{Type: catalog.MatchPairs}, "", false},
		{"empty-answer-key", catalog.Question{Type: catalog.FillInBlank}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.Check(tt.answer); got != tt.want {
				t.Errorf("Check(%q) = %v, want %v", tt.answer, got, tt.want)
			}
		})
	}
}

const validCategory = `
id: test_cat
name: "Test Category"
order: 0
unlock:
  kind: none
lessons:
  - id: t_l2
    title: "Second"
    order: 1
    questions:
      - id: t2_q1
        type: trueFalse
        text: "Second lesson?"
        options: ["True", "False"]
        correct_answer: "True"
  - id: t_l1
    title: "First"
    order: 0
    questions:
      - id: t1_q1
        type: multipleChoice
        text: "Pick A"
        options: ["A", "B"]
        correct_answer: "A"
`

func writeAndLoad(t *testing.T) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "test.yaml", validCategory)
	c, err := catalog.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return c
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
