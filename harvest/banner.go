package harvest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/brequin/catalog/catalog"
	"github.com/brequin/catalog/db"
)

var ErrUnexpectedPage = errors.New("harvest: unexpected page layout")

const (
	termsPath    = "/bwckschd.p_disp_dyn_sched"
	subjectsPath = "/bwckgens.p_proc_term_date"
	catalogPath  = "/bwckctlg.p_display_courses"
	sectionsPath = "/bwckschd.p_get_crse_unsec"
	seatsPath    = "/bwckschd.p_disp_detail_sched"
)

// Listing is one course row of a subject's catalog page.
type Listing struct {
	Subject   string
	Course    string
	Name      string
	DetailURL string
}

// ScheduledSection is a section from the class schedule along with the
// course it belongs to and the title it was listed under.
type ScheduledSection struct {
	Subject string
	Course  string
	Title   string
	Section db.Section
}

// Banner scrapes the public catalog and class schedule pages.
type Banner struct {
	client  *Client
	baseURL string
}

func NewBanner(client *Client, baseURL string) *Banner {
	return &Banner{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (b *Banner) Terms(ctx context.Context) ([]db.TermInfo, error) {
	page, err := b.client.Get(ctx, b.baseURL+termsPath)
	if err != nil {
		return nil, err
	}
	return ParseTerms(bytes.NewReader(page))
}

func (b *Banner) Subjects(ctx context.Context, term db.Term) ([]db.Subject, error) {
	form := url.Values{}
	form.Add("p_calling_proc", "bwckschd.p_disp_dyn_sched")
	form.Add("p_term", string(term))

	page, err := b.client.Post(ctx, b.baseURL+subjectsPath, form)
	if err != nil {
		return nil, err
	}
	return ParseSubjects(bytes.NewReader(page))
}

func (b *Banner) Catalog(ctx context.Context, term db.Term, subject string) ([]Listing, error) {
	form := url.Values{}
	form.Add("term_in", string(term))
	form.Add("call_proc_in", "bwckctlg.p_disp_dyn_ctlg")
	form.Add("sel_subj", "dummy")
	form.Add("sel_levl", "dummy")
	form.Add("sel_schd", "dummy")
	form.Add("sel_coll", "dummy")
	form.Add("sel_divs", "dummy")
	form.Add("sel_dept", "dummy")
	form.Add("sel_attr", "dummy")
	form.Add("sel_subj", subject)
	form.Add("sel_crse_strt", "")
	form.Add("sel_crse_end", "")
	form.Add("sel_title", "")
	form.Add("sel_levl", "%")
	form.Add("sel_schd", "%")
	form.Add("sel_coll", "%")
	form.Add("sel_divs", "%")
	form.Add("sel_dept", "%")
	form.Add("sel_from_cred", "")
	form.Add("sel_to_cred", "")
	form.Add("sel_attr", "%")

	page, err := b.client.Post(ctx, b.baseURL+catalogPath, form)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(bytes.NewReader(page), b.baseURL)
}

func (b *Banner) Detail(ctx context.Context, listing Listing) ([]catalog.Bit, error) {
	page, err := b.client.Get(ctx, listing.DetailURL)
	if err != nil {
		return nil, err
	}
	return ParseDetail(bytes.NewReader(page))
}

func (b *Banner) Sections(ctx context.Context, term db.Term, subject string) ([]ScheduledSection, error) {
	form := url.Values{}
	form.Add("term_in", string(term))
	for _, field := range []string{"sel_subj", "sel_day", "sel_schd", "sel_insm", "sel_camp", "sel_levl", "sel_sess", "sel_instr", "sel_ptrm", "sel_attr"} {
		form.Add(field, "dummy")
	}
	form.Add("sel_subj", subject)
	form.Add("sel_crse", "")
	form.Add("sel_title", "")
	form.Add("sel_schd", "%")
	form.Add("sel_from_cred", "")
	form.Add("sel_to_cred", "")
	form.Add("sel_camp", "%")
	form.Add("sel_ptrm", "%")
	form.Add("sel_instr", "%")
	form.Add("sel_attr", "%")
	form.Add("begin_hh", "0")
	form.Add("begin_mi", "0")
	form.Add("begin_ap", "a")
	form.Add("end_hh", "0")
	form.Add("end_mi", "0")
	form.Add("end_ap", "a")

	page, err := b.client.Post(ctx, b.baseURL+sectionsPath, form)
	if err != nil {
		return nil, err
	}
	return ParseSections(bytes.NewReader(page))
}

// Seats reads live seat and waitlist counts for one CRN, never from the page
// cache.
func (b *Banner) Seats(ctx context.Context, term db.Term, crn int) (*db.Seats, *db.Seats, error) {
	query := url.Values{}
	query.Add("term_in", string(term))
	query.Add("crn_in", strconv.Itoa(crn))

	page, err := b.client.Do(ctx, Request{URL: b.baseURL + seatsPath + "?" + query.Encode(), NoCache: true})
	if err != nil {
		return nil, nil, err
	}
	return ParseSeats(bytes.NewReader(page))
}

func ParseTerms(r io.Reader) ([]db.TermInfo, error) {
	document, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	options := document.Find("select#term_input_id option")
	if options.Length() == 0 {
		return nil, fmt.Errorf("%w: no term options", ErrUnexpectedPage)
	}

	var terms []db.TermInfo
	options.Each(func(_ int, option *goquery.Selection) {
		code, _ := option.Attr("value")
		if code = strings.TrimSpace(code); code == "" {
			return
		}
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(option.Text()), "(View only)"))
		terms = append(terms, db.TermInfo{Code: db.Term(code), Name: name})
	})
	return terms, nil
}

func ParseSubjects(r io.Reader) ([]db.Subject, error) {
	document, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	options := document.Find("select#subj_id option")
	if options.Length() == 0 {
		return nil, fmt.Errorf("%w: no subject options", ErrUnexpectedPage)
	}

	var subjects []db.Subject
	options.Each(func(_ int, option *goquery.Selection) {
		code, _ := option.Attr("value")
		if code = strings.TrimSpace(code); code == "" {
			return
		}
		name := strings.TrimPrefix(strings.TrimSpace(option.Text()), code+"-")
		subjects = append(subjects, db.Subject{Code: code, Name: name})
	})
	return subjects, nil
}

// ParseCatalog reads the course rows of a catalog listing. Detail links are
// resolved against baseURL.
func ParseCatalog(r io.Reader, baseURL string) ([]Listing, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	document, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var listings []Listing
	var parseErr error
	document.Find("td.nttitle a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		code, name, found := strings.Cut(strings.TrimSpace(link.Text()), " - ")
		parts := strings.Fields(code)
		if !found || len(parts) != 2 {
			parseErr = fmt.Errorf("%w: catalog title %q", ErrUnexpectedPage, link.Text())
			return false
		}

		href, _ := link.Attr("href")
		detail, err := base.Parse(href)
		if err != nil {
			parseErr = err
			return false
		}

		listings = append(listings, Listing{
			Subject:   parts[0],
			Course:    parts[1],
			Name:      strings.TrimSpace(name),
			DetailURL: detail.String(),
		})
		return true
	})
	return listings, parseErr
}

func ParseDetail(r io.Reader) ([]catalog.Bit, error) {
	document, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	cell := document.Find("td.ntdefault").First()
	if cell.Length() == 0 {
		return nil, fmt.Errorf("%w: no course detail cell", ErrUnexpectedPage)
	}
	return catalog.SplitBits(cell), nil
}

// meeting table columns
const (
	colType = iota
	colTime
	colDays
	colWhere
	colDateRange
	colScheduleType
	colInstructors
	meetingColumns
)

func ParseSections(r io.Reader) ([]ScheduledSection, error) {
	document, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var sections []ScheduledSection
	var parseErr error
	document.Find("th.ddtitle").EachWithBreak(func(_ int, th *goquery.Selection) bool {
		parts := strings.Split(strings.TrimSpace(th.Text()), " - ")
		n := len(parts)
		if n < 4 {
			parseErr = fmt.Errorf("%w: section title %q", ErrUnexpectedPage, th.Text())
			return false
		}

		code := strings.Fields(parts[n-2])
		crn, err := strconv.Atoi(strings.TrimSpace(parts[n-3]))
		if err != nil || len(code) != 2 {
			parseErr = fmt.Errorf("%w: section title %q", ErrUnexpectedPage, th.Text())
			return false
		}

		section := db.Section{
			CRN:     crn,
			Section: strings.TrimSpace(parts[n-1]),
		}
		meetings(th.Parent().Next(), &section)

		sections = append(sections, ScheduledSection{
			Subject: code[0],
			Course:  code[1],
			Title:   strings.TrimSpace(strings.Join(parts[:n-3], " - ")),
			Section: section,
		})
		return true
	})
	return sections, parseErr
}

func meetings(detail *goquery.Selection, section *db.Section) {
	instructors := map[string]int{}
	rooms := map[string]bool{}

	detail.Find("table.datadisplaytable tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Children().Filter("td")
		if cells.Length() < meetingColumns {
			return
		}
		cell := func(i int) string {
			return strings.Join(strings.Fields(cells.Eq(i).Text()), " ")
		}

		if t := cell(colTime); t != "TBA" {
			section.Times = append(section.Times, db.MeetingTime{Day: cell(colDays), Time: t})
		}
		if where := cell(colWhere); where != "" && where != "TBA" && !rooms[where] {
			rooms[where] = true
			section.Room = append(section.Room, where)
		}
		if section.ScheduleType == "" {
			section.ScheduleType = cell(colScheduleType)
			section.DateRange = dateRange(cell(colDateRange))
		}

		for _, raw := range strings.Split(cell(colInstructors), ",") {
			primary := strings.Contains(raw, "(P)")
			name := strings.Join(strings.Fields(strings.ReplaceAll(raw, "(P)", "")), " ")
			if name == "" || name == "TBA" {
				continue
			}
			if i, ok := instructors[name]; ok {
				section.Instructors[i].Primary = section.Instructors[i].Primary || primary
				continue
			}
			instructors[name] = len(section.Instructors)
			section.Instructors = append(section.Instructors, db.Instructor{Name: name, Primary: primary})
		}
	})
}

func dateRange(text string) [2]string {
	start, end, _ := strings.Cut(text, " - ")
	return [2]string{isoDate(start), isoDate(end)}
}

func isoDate(text string) string {
	text = strings.TrimSpace(text)
	if t, err := time.Parse("Jan 02, 2006", text); err == nil {
		return t.Format("2006-01-02")
	}
	return text
}

// ParseSeats reads the seat and waitlist rows of a section detail page. Either
// may be nil when the page does not list it.
func ParseSeats(r io.Reader) (*db.Seats, *db.Seats, error) {
	document, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, nil, err
	}

	var seats, waitlist *db.Seats
	var parseErr error
	document.Find("th.ddlabel").EachWithBreak(func(_ int, th *goquery.Selection) bool {
		label := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(th.Text()), ":"))
		if label != "Seats" && label != "Waitlist Seats" {
			return true
		}

		cells := th.NextAllFiltered("td.dddefault")
		if cells.Length() < 3 {
			parseErr = fmt.Errorf("%w: %s row", ErrUnexpectedPage, label)
			return false
		}
		actual, err := strconv.Atoi(strings.TrimSpace(cells.Eq(1).Text()))
		if err != nil {
			parseErr = fmt.Errorf("could not convert %s actual %q to int: %w", label, cells.Eq(1).Text(), err)
			return false
		}
		remaining, err := strconv.Atoi(strings.TrimSpace(cells.Eq(2).Text()))
		if err != nil {
			parseErr = fmt.Errorf("could not convert %s remaining %q to int: %w", label, cells.Eq(2).Text(), err)
			return false
		}

		counts := &db.Seats{Used: actual, Left: remaining}
		if label == "Seats" {
			seats = counts
		} else {
			waitlist = counts
		}
		return true
	})
	if parseErr != nil {
		return nil, nil, parseErr
	}
	if seats == nil && waitlist == nil {
		return nil, nil, fmt.Errorf("%w: no seat rows", ErrUnexpectedPage)
	}
	return seats, waitlist, nil
}
