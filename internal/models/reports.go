package models

import "time"

// RawPayload columns use a size that maps to longtext on MySQL and text on
// sqlite and postgres.

type LinesOfCode struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Owner      string    `gorm:"size:191;not null;index:idx_loc_scope,priority:1" json:"owner"`
	Repository string    `gorm:"size:191;not null;index:idx_loc_scope,priority:2" json:"repository"`
	Branch     string    `gorm:"size:191;not null;index:idx_loc_scope,priority:3" json:"branch"`
	CreatedAt  time.Time `gorm:"not null;index:idx_loc_scope,priority:4" json:"created_at"`
	RawPayload string    `gorm:"size:4294967295" json:"-"`
}

func (LinesOfCode) TableName() string { return "lines_of_code" }

type LinesOfCodeLanguage struct {
	ReportID      string `gorm:"primaryKey;size:36" json:"-"`
	Language      string `gorm:"primaryKey;size:191" json:"language"`
	NumberOfFiles int    `json:"number_of_files"`
	BlankLines    int    `json:"blank_lines"`
	CommentLines  int    `json:"comment_lines"`
	CodeLines     int    `json:"code_lines"`
}

func (LinesOfCodeLanguage) TableName() string { return "lines_of_code_languages" }

type CodeCoverage struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Owner           string    `gorm:"size:191;not null;index:idx_coverage_scope,priority:1" json:"owner"`
	Repository      string    `gorm:"size:191;not null;index:idx_coverage_scope,priority:2" json:"repository"`
	Branch          string    `gorm:"size:191;not null;index:idx_coverage_scope,priority:3" json:"branch"`
	CreatedAt       time.Time `gorm:"not null;index:idx_coverage_scope,priority:4" json:"created_at"`
	RawPayload      string    `gorm:"size:4294967295" json:"-"`
	LineCoverage    float64   `json:"line_coverage"`
	ExecutableLines int       `json:"executable_lines"`
	CoveredLines    int       `json:"covered_lines"`
}

func (CodeCoverage) TableName() string { return "code_coverage" }

type CodeCoverageTarget struct {
	ReportID        string  `gorm:"primaryKey;size:36" json:"-"`
	Target          string  `gorm:"primaryKey;size:191" json:"target"`
	LineCoverage    float64 `json:"line_coverage"`
	ExecutableLines int     `json:"executable_lines"`
	CoveredLines    int     `json:"covered_lines"`
}

func (CodeCoverageTarget) TableName() string { return "code_coverage_targets" }

type CodeCoverageFile struct {
	ReportID        string  `gorm:"primaryKey;size:36" json:"-"`
	Target          string  `gorm:"primaryKey;size:191" json:"target"`
	FilePath        string  `gorm:"primaryKey;size:512" json:"file_path"`
	FileName        string  `gorm:"size:255" json:"file_name"`
	LineCoverage    float64 `json:"line_coverage"`
	ExecutableLines int     `json:"executable_lines"`
	CoveredLines    int     `json:"covered_lines"`
}

func (CodeCoverageFile) TableName() string { return "code_coverage_files" }

type UnitTest struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Owner      string    `gorm:"size:191;not null;index:idx_unit_test_scope,priority:1" json:"owner"`
	Repository string    `gorm:"size:191;not null;index:idx_unit_test_scope,priority:2" json:"repository"`
	Branch     string    `gorm:"size:191;not null;index:idx_unit_test_scope,priority:3" json:"branch"`
	CreatedAt  time.Time `gorm:"not null;index:idx_unit_test_scope,priority:4" json:"created_at"`
	RawPayload string    `gorm:"size:4294967295" json:"-"`
}

func (UnitTest) TableName() string { return "unit_tests" }

type UnitTestClass struct {
	ReportID string `gorm:"primaryKey;size:36" json:"-"`
	Class    string `gorm:"column:unit_test_class;primaryKey;size:255" json:"class"`
}

func (UnitTestClass) TableName() string { return "unit_test_classes" }

type UnitTestCase struct {
	ReportID string `gorm:"primaryKey;size:36" json:"-"`
	Class    string `gorm:"column:unit_test_class;primaryKey;size:255" json:"class"`
	Case     string `gorm:"column:unit_test_case;primaryKey;size:255" json:"case"`
	Status   string `gorm:"size:64" json:"status"`
}

func (UnitTestCase) TableName() string { return "unit_test_cases" }

type ImageCapture struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Owner      string    `gorm:"size:191;not null;index:idx_image_capture_scope,priority:1" json:"owner"`
	Repository string    `gorm:"size:191;not null;index:idx_image_capture_scope,priority:2" json:"repository"`
	Branch     string    `gorm:"size:191;not null;index:idx_image_capture_scope,priority:3" json:"branch"`
	CreatedAt  time.Time `gorm:"not null;index:idx_image_capture_scope,priority:4" json:"created_at"`
	RawPayload string    `gorm:"size:4294967295" json:"-"`
}

func (ImageCapture) TableName() string { return "image_captures" }

type ImageCaptureFile struct {
	ReportID string `gorm:"primaryKey;size:36" json:"-"`
	Title    string `gorm:"primaryKey;size:255" json:"title"`
	URL      string `gorm:"size:1024" json:"url"`
	FileName string `gorm:"size:255" json:"file_name"`
}

func (ImageCaptureFile) TableName() string { return "image_capture_files" }

type ImageCaptureDiff struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	Owner              string    `gorm:"size:191;not null;index:idx_image_diff_scope,priority:1" json:"owner"`
	Repository         string    `gorm:"size:191;not null;index:idx_image_diff_scope,priority:2" json:"repository"`
	Branch             string    `gorm:"size:191;not null;index:idx_image_diff_scope,priority:3" json:"branch"`
	CreatedAt          time.Time `gorm:"not null;index:idx_image_diff_scope,priority:4" json:"created_at"`
	RawPayload         string    `gorm:"size:4294967295" json:"-"`
	NewImagesCount     int       `json:"new_images_count"`
	ChangedImagesCount int       `json:"changed_images_count"`
	RemovedImagesCount int       `json:"removed_images_count"`
}

func (ImageCaptureDiff) TableName() string { return "image_capture_diffs" }
