package dto

// TeacherDashboardResponse lists the surveys a teacher owns.
type TeacherDashboardResponse struct {
	Role    string          `json:"role"`
	Surveys []SurveySummary `json:"surveys"`
}

// StudentDashboardResponse lists open surveys and the caller's history.
type StudentDashboardResponse struct {
	Role        string               `json:"role"`
	Surveys     []SurveySummary      `json:"surveys"`
	Submissions []SubmissionResponse `json:"submissions"`
}
