package ingest

import (
	"path/filepath"
	"strings"

	"github.com/phrazzld/studyloop/internal/domain"
)

var (
	videoExts = []string{".mp4", ".mov"}
	imageExts = []string{".png", ".jpg", ".jpeg", ".webp"}
	// Exam-paper markers: full paper, test paper, past paper, problem set, exercises.
	exerciseMarkers = []string{"套卷", "试卷", "真题", "题集", "习题"}
)

// InferMaterialCategory guesses a material category from a file name.
func InferMaterialCategory(fileName string) domain.MaterialCategory {
	lower := strings.ToLower(fileName)
	ext := filepath.Ext(lower)

	for _, e := range videoExts {
		if ext == e {
			return domain.MaterialVideo
		}
	}
	if strings.Contains(lower, "视频") {
		return domain.MaterialVideo
	}
	for _, e := range imageExts {
		if ext == e {
			return domain.MaterialImage
		}
	}
	for _, m := range exerciseMarkers {
		if strings.Contains(lower, m) {
			return domain.MaterialExercise
		}
	}
	return domain.MaterialPDF
}

// TitleFromFileName strips any directory and the final extension.
func TitleFromFileName(fileName string) string {
	base := filepath.Base(fileName)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
