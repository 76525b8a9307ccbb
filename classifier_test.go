package shellcache

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want Category
	}{
		{"/students", CategoryAPI},
		{"/students/STU-1001", CategoryAPI},
		{"/scan", CategoryAPI},
		{"/scan/9", CategoryAPI},
		{"/pending/42", CategoryAPI},
		{"/logs/recent", CategoryAPI},
		{"/api/anything", CategoryAPI},
		{"/health", CategoryAPI},
		{"/", CategoryStatic},
		{"/index.html", CategoryStatic},
		{"/static/app.js", CategoryStatic},
		{"/healthcheck", CategoryStatic},
		{"/api", CategoryStatic},
		{"/apiary", CategoryStatic},
		{"/studentsabc", CategoryAPI},
		{"/logout", CategoryStatic},
	}
	for _, tt := range tests {
		if got := Classify(tt.path); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}
