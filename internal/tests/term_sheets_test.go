// internal/tests/term_sheets_test.go
package tests

import (
	"net/http"

	"github.com/javajoker/estate-backend/internal/models"
	"github.com/javajoker/estate-backend/internal/termsheet"
)

type sheetBody struct {
	TermSheet termsheet.TermSheet `json:"term_sheet"`
}

type documentBody struct {
	Document string `json:"document"`
}

func (s *APISuite) TestTemplateCatalogueAndPreview() {
	code, env := s.do(http.MethodGet, "/v1/templates", "", nil)
	s.Require().Equal(http.StatusOK, code)
	var catalogue struct {
		Templates []struct {
			ID string `json:"id"`
		} `json:"templates"`
	}
	s.decode(env, &catalogue)
	s.Len(catalogue.Templates, 4)

	code, env = s.do(http.MethodPost, "/v1/templates/purchase/preview", "", map[string]interface{}{
		"fields": map[string]string{"propertyAddress": "12 Elm Street"},
	})
	s.Require().Equal(http.StatusOK, code)
	var doc documentBody
	s.decode(env, &doc)
	s.Contains(doc.Document, "12 Elm Street")

	code, env = s.do(http.MethodPost, "/v1/templates/timeshare/preview", "", nil)
	s.Equal(http.StatusNotFound, code)
}

func (s *APISuite) TestTermSheetLifecycle() {
	_, token := s.createUser(models.UserRoleMember)
	_, otherToken := s.createUser(models.UserRoleMember)

	code, env := s.do(http.MethodPost, "/v1/term-sheets", token, map[string]interface{}{
		"templateId":      "renovation",
		"name":            "Kitchen refit",
		"propertyAddress": "7 Oak Lane",
		"partyOne":        "Olive Owner",
		"partyTwo":        "Carl Contractor",
		"signatureOne":    testSignature,
	})
	s.Require().Equal(http.StatusCreated, code, s.errorCode(env))
	var created sheetBody
	s.decode(env, &created)
	id := created.TermSheet.ID
	s.NotEmpty(id)

	code, env = s.do(http.MethodPatch, "/v1/term-sheets/"+id, token, map[string]interface{}{"name": "Kitchen and bath"})
	s.Require().Equal(http.StatusOK, code)
	var updated sheetBody
	s.decode(env, &updated)
	s.Equal("Kitchen and bath", updated.TermSheet.Name)
	s.Equal("7 Oak Lane", updated.TermSheet.PropertyAddress)
	s.Equal(created.TermSheet.CreatedAt.Unix(), updated.TermSheet.CreatedAt.Unix())

	code, env = s.do(http.MethodGet, "/v1/term-sheets/"+id+"/document", token, nil)
	s.Require().Equal(http.StatusOK, code)
	var doc documentBody
	s.decode(env, &doc)
	s.Contains(doc.Document, "7 Oak Lane")
	s.Contains(doc.Document, "Carl Contractor")

	// Another owner's store does not see the record.
	code, _ = s.do(http.MethodGet, "/v1/term-sheets/"+id, otherToken, nil)
	s.Equal(http.StatusNotFound, code)

	code, env = s.do(http.MethodGet, "/v1/term-sheets", token, nil)
	s.Require().Equal(http.StatusOK, code)
	var list struct {
		TermSheets []termsheet.TermSheet `json:"term_sheets"`
	}
	s.decode(env, &list)
	s.Len(list.TermSheets, 1)

	code, _ = s.do(http.MethodDelete, "/v1/term-sheets/"+id, token, nil)
	s.Equal(http.StatusOK, code)
	code, _ = s.do(http.MethodDelete, "/v1/term-sheets/"+id, token, nil)
	s.Equal(http.StatusNotFound, code)
}

func (s *APISuite) TestTermSheetRejectsUnknownTemplate() {
	_, token := s.createUser(models.UserRoleMember)

	code, env := s.do(http.MethodPost, "/v1/term-sheets", token, map[string]interface{}{
		"templateId":      "timeshare",
		"name":            "x",
		"propertyAddress": "y",
		"partyOne":        "a",
		"partyTwo":        "b",
	})
	s.Equal(http.StatusBadRequest, code)
	s.Equal("VALIDATION_ERROR", s.errorCode(env))
}
