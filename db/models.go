package db

import (
	"encoding/json"
	"fmt"
	"time"
)

// Term is a registration term code such as 202510. Codes sort chronologically.
type Term string

func (t Term) Before(other Term) bool {
	return t < other
}

type TermInfo struct {
	Code Term
	Name string
}

type Subject struct {
	Code string
	Name string
}

type Grade string

const (
	GradeAPlus  Grade = "A+"
	GradeA      Grade = "A"
	GradeAMinus Grade = "A-"
	GradeBPlus  Grade = "B+"
	GradeB      Grade = "B"
	GradeBMinus Grade = "B-"
	GradeCPlus  Grade = "C+"
	GradeC      Grade = "C"
	GradeCMinus Grade = "C-"
	GradeDPlus  Grade = "D+"
	GradeD      Grade = "D"
	GradeDMinus Grade = "D-"
	GradeE      Grade = "E"
	GradeF      Grade = "F"
	GradeP      Grade = "P"
	GradeS      Grade = "S"
	GradeU      Grade = "U"
	GradeSI     Grade = "SI"
	GradePI     Grade = "PI"
)

var Grades = []Grade{
	GradeAPlus, GradeA, GradeAMinus,
	GradeBPlus, GradeB, GradeBMinus,
	GradeCPlus, GradeC, GradeCMinus,
	GradeDPlus, GradeD, GradeDMinus,
	GradeE, GradeF, GradeP, GradeS, GradeU, GradeSI, GradePI,
}

func ParseGrade(s string) (Grade, bool) {
	for _, g := range Grades {
		if string(g) == s {
			return g, true
		}
	}
	return "", false
}

type Level string

const (
	LevelUndergraduate Level = "Undergraduate"
	LevelGraduate      Level = "Graduate"
	LevelProfessional  Level = "Professional"
)

var Levels = []Level{LevelUndergraduate, LevelGraduate, LevelProfessional}

func ParseLevel(s string) (Level, bool) {
	for _, l := range Levels {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

type PreReqType string

const (
	PreReqCourse           PreReqType = "course"
	PreReqCourseRange      PreReqType = "courseRange"
	PreReqSubject          PreReqType = "subject"
	PreReqAttribute        PreReqType = "attribute"
	PreReqRange            PreReqType = "range"
	PreReqTest             PreReqType = "test"
	PreReqGPA              PreReqType = "gpa"
	PreReqCredits          PreReqType = "credits"
	PreReqStudentAttribute PreReqType = "studentAttribute"
)

// PreReq is a single requirement leaf. Which fields are meaningful depends on Type.
type PreReq struct {
	Type PreReqType `json:"type"`

	Level   *Level `json:"level,omitempty"`
	Subject string `json:"subject,omitempty"`
	Course  string `json:"course,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Grade   *Grade `json:"grade,omitempty"`

	Concurrent  bool `json:"concurrent,omitempty"`
	Corequisite bool `json:"corequisite,omitempty"`

	MinCredits *float64 `json:"minCredits,omitempty"`
	MinGPA     *float64 `json:"minGPA,omitempty"`

	Attribute string `json:"attribute,omitempty"`

	// range
	What string   `json:"what,omitempty"`
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`

	// test
	Test     string `json:"test,omitempty"`
	MinScore string `json:"minScore,omitempty"`

	// gpa and credits
	Minimum *float64 `json:"minimum,omitempty"`
}

// MarshalJSON always writes grade and the concurrency flags on course leaves,
// and concurrent on the other leaves that support it, so an unset grade reads
// as null rather than missing.
func (p PreReq) MarshalJSON() ([]byte, error) {
	type plain PreReq
	switch {
	case p.Type == PreReqCourse:
		return json.Marshal(struct {
			plain
			Grade       *Grade `json:"grade"`
			Concurrent  bool   `json:"concurrent"`
			Corequisite bool   `json:"corequisite"`
		}{plain(p), p.Grade, p.Concurrent, p.Corequisite})
	case p.SupportsConcurrent():
		return json.Marshal(struct {
			plain
			Concurrent bool `json:"concurrent"`
		}{plain(p), p.Concurrent})
	}
	return json.Marshal(plain(p))
}

// SupportsConcurrent reports whether the leaf can be taken alongside the course.
func (p PreReq) SupportsConcurrent() bool {
	switch p.Type {
	case PreReqCourse, PreReqCourseRange, PreReqSubject, PreReqAttribute:
		return true
	}
	return false
}

type PreReqsType string

const (
	PreReqsLeaf PreReqsType = "leaf"
	PreReqsAnd  PreReqsType = "and"
	PreReqsOr   PreReqsType = "or"
)

type PreReqs struct {
	Type PreReqsType `json:"type"`
	Leaf *PreReq     `json:"leaf,omitempty"`
	Vs   []PreReqs   `json:"vs,omitempty"`
}

const (
	requirementsFailed = "failed"
	requirementsNone   = "none"
)

// Requirements is a parsed requirement tree, or one of the "failed" and "none" sentinels.
type Requirements struct {
	Failed bool
	Tree   *PreReqs
}

func (r Requirements) MarshalJSON() ([]byte, error) {
	switch {
	case r.Failed:
		return json.Marshal(requirementsFailed)
	case r.Tree == nil:
		return json.Marshal(requirementsNone)
	}
	return json.Marshal(r.Tree)
}

func (r *Requirements) UnmarshalJSON(data []byte) error {
	var sentinel string
	if err := json.Unmarshal(data, &sentinel); err == nil {
		switch sentinel {
		case requirementsFailed:
			*r = Requirements{Failed: true}
		case requirementsNone:
			*r = Requirements{}
		default:
			return fmt.Errorf("unknown requirements sentinel %q", sentinel)
		}
		return nil
	}

	var tree PreReqs
	if err := json.Unmarshal(data, &tree); err != nil {
		return err
	}
	*r = Requirements{Tree: &tree}
	return nil
}

type RestrictionType string

const (
	RestrictionLevel   RestrictionType = "level"
	RestrictionMajor   RestrictionType = "major"
	RestrictionDegree  RestrictionType = "degree"
	RestrictionProgram RestrictionType = "program"
	RestrictionCollege RestrictionType = "college"
	RestrictionClass   RestrictionType = "class"
	RestrictionCohort  RestrictionType = "cohort"
)

// Restriction limits who may enroll. Exclusive means "may not be".
type Restriction struct {
	Type      RestrictionType `json:"type"`
	Exclusive bool            `json:"exclusive"`

	Level   *Level `json:"level,omitempty"`
	Major   string `json:"major,omitempty"`
	Degree  string `json:"degree,omitempty"`
	Program string `json:"program,omitempty"`
	College string `json:"college,omitempty"`
	Cohort  string `json:"cohort,omitempty"`

	Class     string `json:"class,omitempty"`
	MinCredit *int   `json:"minCredit,omitempty"`
	MaxCredit *int   `json:"maxCredit,omitempty"`
	Year      *int   `json:"year,omitempty"`
}

type CreditsType string

const (
	CreditsFixed CreditsType = "fixed"
	CreditsRange CreditsType = "range"
)

type Credits struct {
	Type   CreditsType `json:"type"`
	Values []float64   `json:"values,omitempty"`
	Min    float64     `json:"min,omitempty"`
	Max    float64     `json:"max,omitempty"`
}

type Seats struct {
	Used int `json:"used"`
	Left int `json:"left"`
}

type MeetingTime struct {
	Day  string `json:"day"`
	Time string `json:"time"`
}

type Instructor struct {
	Name    string `json:"name"`
	Primary bool   `json:"primary"`
}

type Section struct {
	CRN          int           `json:"crn"`
	Section      string        `json:"section"`
	Name         *string       `json:"name,omitempty"`
	Times        []MeetingTime `json:"times"`
	Seats        *Seats        `json:"seats,omitempty"`
	Waitlist     *Seats        `json:"waitlist,omitempty"`
	Room         []string      `json:"room,omitempty"`
	DateRange    [2]string     `json:"dateRange"`
	ScheduleType string        `json:"scheduleType"`
	Instructors  []Instructor  `json:"instructors"`
}

// InstructorGrades is the grade distribution one instructor gave in one term.
type InstructorGrades struct {
	Instructor string            `json:"instructor"`
	Term       Term              `json:"term"`
	GPA        *float64          `json:"gpa,omitempty"`
	Count      int               `json:"count"`
	Breakdown  map[Grade]float64 `json:"breakdown"`
}

type Attachment struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Href string `json:"href"`
}

type Course struct {
	ID               int64              `json:"id,omitempty"`
	Subject          string             `json:"subject"`
	Course           string             `json:"course"`
	Name             string             `json:"name"`
	Description      string             `json:"description"`
	LearningOutcomes []string           `json:"learningOutcomes,omitempty"`
	Credits          Credits            `json:"credits"`
	Prereqs          Requirements       `json:"prereqs"`
	Restrictions     []Restriction      `json:"restrictions"`
	Attributes       []string           `json:"attributes"`
	Sections         map[Term][]Section `json:"sections"`
	Grades           []InstructorGrades `json:"grades,omitempty"`
	Attachments      []Attachment       `json:"attachments,omitempty"`
	LastUpdated      time.Time          `json:"lastUpdated"`
}

type CourseKey struct {
	Subject string
	Course  string
}

func (c *Course) Key() CourseKey {
	return CourseKey{Subject: c.Subject, Course: c.Course}
}

func (k CourseKey) String() string {
	return k.Subject + " " + k.Course
}
