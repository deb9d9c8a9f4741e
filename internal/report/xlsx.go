package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	api "github.com/gradekit/speed-grader/api/v1alpha1"
)

const gradesSheet = "Grades"

// BuildGradeReport renders a completed grading result as an xlsx workbook.
// One row per submission, one score and feedback column pair per rubric
// criterion, in rubric order.
func BuildGradeReport(result *api.GradingResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetIndex, err := f.NewSheet(gradesSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(sheetIndex)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"Student", "Submission ID"}
	for _, criterion := range result.Assignment.Rubric {
		headers = append(headers,
			fmt.Sprintf("%s (/%g)", criterion.Description, criterion.Points),
			fmt.Sprintf("%s - Feedback", criterion.Description),
		)
	}
	headers = append(headers, "Total", "General Feedback", "Fairness Flag", "Fairness Message")

	for colIndex, header := range headers {
		if err := f.SetCellValue(gradesSheet, cellRef(colIndex, 1), header); err != nil {
			return nil, err
		}
	}

	for rowIndex, submission := range result.Submissions {
		row := rowIndex + 2
		grade, graded := result.Grades[submission.ID]

		cells := []any{studentColumn(submission), submission.ID}
		for _, criterion := range result.Assignment.Rubric {
			if !graded {
				cells = append(cells, "", "")
				continue
			}
			criterionGrade := grade.Criteria[criterion.ID]
			cells = append(cells, criterionGrade.Score, criterionGrade.Feedback)
		}
		if graded {
			cells = append(cells, grade.Total, grade.GeneralFeedback, grade.FairnessFlag, grade.FairnessMessage)
		} else {
			cells = append(cells, "", "Not graded", "", "")
		}

		for colIndex, value := range cells {
			if err := f.SetCellValue(gradesSheet, cellRef(colIndex, row), value); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func studentColumn(submission api.Submission) string {
	if submission.AnonymousID != "" {
		return submission.AnonymousID
	}
	return submission.UserID
}

func cellRef(col, row int) string {
	name, _ := excelize.ColumnNumberToName(col + 1)
	return fmt.Sprintf("%s%d", name, row)
}
