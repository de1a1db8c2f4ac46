// internal/tests/contracts_test.go
package tests

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/javajoker/estate-backend/internal/models"
)

type contractBody struct {
	Contract models.Contract `json:"contract"`
}

type signBody struct {
	Section        models.ContractSection `json:"section"`
	ContractStatus models.ContractStatus  `json:"contract_status"`
}

type linkBody struct {
	ID    uuid.UUID `json:"id"`
	Token string    `json:"token"`
	URL   string    `json:"url"`
}

// createContract authors a contract with one required BUYER and one required
// AGENT section.
func (s *APISuite) createContract(token string) models.Contract {
	code, env := s.do(http.MethodPost, "/v1/contracts", token, map[string]interface{}{
		"title":     "12 Elm Street purchase",
		"cc_emails": []string{"closing@example.test"},
		"sections": []map[string]interface{}{
			{"title": "Buyer acknowledgement", "page_number": 1, "role": "BUYER"},
			{"title": "Agent disclosure", "page_number": 2, "role": "AGENT"},
		},
	})
	s.Require().Equal(http.StatusCreated, code, s.errorCode(env))

	var body contractBody
	s.decode(env, &body)
	s.Require().Len(body.Contract.Sections, 2)
	s.Equal(models.ContractStatusPending, body.Contract.Status)
	return body.Contract
}

func sectionID(c models.Contract, role models.ContractRole) uuid.UUID {
	for _, sec := range c.Sections {
		if sec.Role == role {
			return sec.ID
		}
	}
	return uuid.Nil
}

func (s *APISuite) TestSigningFlowThroughLinkAndAccount() {
	agent, agentToken := s.createUser(models.UserRoleAgent)
	contract := s.createContract(agentToken)

	code, env := s.do(http.MethodPost, "/v1/contracts/"+contract.ID.String()+"/signing-links", agentToken, map[string]interface{}{
		"role":         "BUYER",
		"signer_email": "buyer@example.test",
		"signer_name":  "Bea Buyer",
	})
	s.Require().Equal(http.StatusCreated, code, s.errorCode(env))
	var link linkBody
	s.decode(env, &link)
	s.Len(link.Token, 48)
	s.Equal("https://app.example.test/sign/"+link.Token, link.URL)

	// The link shows only the buyer's sections.
	code, env = s.do(http.MethodGet, "/v1/sign/"+link.Token, "", nil)
	s.Require().Equal(http.StatusOK, code)
	var view struct {
		Role     models.ContractRole      `json:"role"`
		Sections []models.ContractSection `json:"sections"`
	}
	s.decode(env, &view)
	s.Equal(models.ContractRoleBuyer, view.Role)
	s.Require().Len(view.Sections, 1)

	code, env = s.do(http.MethodPost, "/v1/contracts/"+contract.ID.String()+"/sections/"+sectionID(contract, models.ContractRoleAgent).String()+"/sign", agentToken, map[string]interface{}{
		"signer_name":     agent.Username,
		"signer_email":    agent.Email,
		"signature_image": testSignature,
		"role":            "AGENT",
	})
	s.Require().Equal(http.StatusOK, code, s.errorCode(env))
	var signed signBody
	s.decode(env, &signed)
	s.Equal(models.ContractStatusInProgress, signed.ContractStatus)

	code, env = s.do(http.MethodPost, "/v1/sign/"+link.Token+"/sections/"+sectionID(contract, models.ContractRoleBuyer).String(), "", map[string]interface{}{
		"signature_image": testSignature,
	})
	s.Require().Equal(http.StatusOK, code, s.errorCode(env))
	s.decode(env, &signed)
	s.Equal(models.ContractStatusFullyExecuted, signed.ContractStatus)
	s.Require().NotNil(signed.Section.Signature)
	s.Equal("buyer@example.test", signed.Section.Signature.SignerEmail)

	// Nothing left for the buyer. The link still resolves, and a second
	// signature through it is rejected by the section.
	code, env = s.do(http.MethodGet, "/v1/sign/"+link.Token, "", nil)
	s.Require().Equal(http.StatusOK, code)
	var spent struct {
		Consumed bool `json:"consumed"`
	}
	s.decode(env, &spent)
	s.True(spent.Consumed)

	code, env = s.do(http.MethodPost, "/v1/sign/"+link.Token+"/sections/"+sectionID(contract, models.ContractRoleBuyer).String(), "", map[string]interface{}{
		"signature_image": testSignature,
	})
	s.Equal(http.StatusConflict, code)
	s.Equal("ALREADY_SIGNED", s.errorCode(env))

	code, env = s.do(http.MethodGet, "/v1/contracts/"+contract.ID.String(), agentToken, nil)
	s.Require().Equal(http.StatusOK, code)
	var fetched contractBody
	s.decode(env, &fetched)
	s.Equal(models.ContractStatusFullyExecuted, fetched.Contract.Status)
}

// issueLink sends a signing link for role to email and returns it.
func (s *APISuite) issueLink(token string, contract models.Contract, role models.ContractRole, email string) linkBody {
	code, env := s.do(http.MethodPost, "/v1/contracts/"+contract.ID.String()+"/signing-links", token, map[string]interface{}{
		"role":         role,
		"signer_email": email,
		"signer_name":  "Invited " + string(role),
	})
	s.Require().Equal(http.StatusCreated, code, s.errorCode(env))
	var link linkBody
	s.decode(env, &link)
	return link
}

func (s *APISuite) TestSigningGuards() {
	_, agentToken := s.createUser(models.UserRoleAgent)
	member, memberToken := s.createUser(models.UserRoleMember)
	contract := s.createContract(agentToken)
	base := "/v1/contracts/" + contract.ID.String() + "/sections/"

	signAs := func(token string, section uuid.UUID, role, image string) (int, envelope) {
		return s.do(http.MethodPost, base+section.String()+"/sign", token, map[string]interface{}{
			"signer_name":     member.Username,
			"signer_email":    member.Email,
			"signature_image": image,
			"role":            role,
		})
	}

	// Members may not author contracts.
	code, _ := s.do(http.MethodPost, "/v1/contracts", memberToken, map[string]interface{}{"title": "x"})
	s.Equal(http.StatusForbidden, code)

	// Uninvited accounts cannot see the contract at all.
	code, env := signAs(memberToken, sectionID(contract, models.ContractRoleBuyer), "BUYER", testSignature)
	s.Equal(http.StatusNotFound, code, s.errorCode(env))

	s.issueLink(agentToken, contract, models.ContractRoleBuyer, member.Email)

	// A member cannot act as the agent.
	code, env = signAs(memberToken, sectionID(contract, models.ContractRoleAgent), "AGENT", testSignature)
	s.Equal(http.StatusForbidden, code)
	s.Equal("ROLE_MISMATCH", s.errorCode(env))

	// The acting role must match the section.
	code, env = signAs(memberToken, sectionID(contract, models.ContractRoleAgent), "BUYER", testSignature)
	s.Equal(http.StatusForbidden, code)
	s.Equal("ROLE_MISMATCH", s.errorCode(env))

	code, env = signAs(memberToken, sectionID(contract, models.ContractRoleBuyer), "BUYER", "not-an-image")
	s.Equal(http.StatusBadRequest, code)
	s.Equal("INVALID_SIGNATURE", s.errorCode(env))

	code, env = signAs(memberToken, uuid.New(), "BUYER", testSignature)
	s.Equal(http.StatusNotFound, code)

	code, _ = signAs(memberToken, sectionID(contract, models.ContractRoleBuyer), "BUYER", testSignature)
	s.Require().Equal(http.StatusOK, code)

	code, env = signAs(memberToken, sectionID(contract, models.ContractRoleBuyer), "BUYER", testSignature)
	s.Equal(http.StatusConflict, code)
	s.Equal("ALREADY_SIGNED", s.errorCode(env))
}

func (s *APISuite) TestSigningLinkErrors() {
	_, agentToken := s.createUser(models.UserRoleAgent)
	contract := s.createContract(agentToken)

	code, env := s.do(http.MethodGet, "/v1/sign/not-a-real-token", "", nil)
	s.Equal(http.StatusUnauthorized, code)
	s.Equal("TOKEN_INVALID", s.errorCode(env))

	// No SELLER sections on this contract.
	code, env = s.do(http.MethodPost, "/v1/contracts/"+contract.ID.String()+"/signing-links", agentToken, map[string]interface{}{
		"role":         "SELLER",
		"signer_email": "seller@example.test",
		"signer_name":  "Sam Seller",
	})
	s.Equal(http.StatusForbidden, code)
	s.Equal("ROLE_MISMATCH", s.errorCode(env))

	code, env = s.do(http.MethodPost, "/v1/contracts/"+contract.ID.String()+"/signing-links", agentToken, map[string]interface{}{
		"role":         "BUYER",
		"signer_email": "buyer@example.test",
		"signer_name":  "Bea Buyer",
	})
	s.Require().Equal(http.StatusCreated, code)
	var link linkBody
	s.decode(env, &link)

	code, env = s.do(http.MethodPost, "/v1/sign/"+link.Token+"/sections/"+sectionID(contract, models.ContractRoleAgent).String(), "", map[string]interface{}{
		"signature_image": testSignature,
	})
	s.Equal(http.StatusForbidden, code)
	s.Equal("TOKEN_ROLE_MISMATCH", s.errorCode(env))

	code, _ = s.do(http.MethodDelete, "/v1/signing-links/"+link.ID.String(), agentToken, nil)
	s.Require().Equal(http.StatusOK, code)

	code, env = s.do(http.MethodGet, "/v1/sign/"+link.Token, "", nil)
	s.Equal(http.StatusUnauthorized, code)
	s.Equal("TOKEN_INVALID", s.errorCode(env))
}

func (s *APISuite) TestForeignCallersCannotReachContract() {
	_, authorToken := s.createUser(models.UserRoleAgent)
	_, rivalToken := s.createUser(models.UserRoleAgent)
	invitee, inviteeToken := s.createUser(models.UserRoleMember)
	_, strangerToken := s.createUser(models.UserRoleMember)
	_, adminToken := s.createUser(models.UserRoleAdmin)
	contract := s.createContract(authorToken)
	path := "/v1/contracts/" + contract.ID.String()

	code, env := s.do(http.MethodPost, path+"/signing-links", rivalToken, map[string]interface{}{
		"role":         "BUYER",
		"signer_email": "rival@example.test",
		"signer_name":  "Rival",
	})
	s.Equal(http.StatusNotFound, code, s.errorCode(env))

	code, _ = s.do(http.MethodGet, path+"/signing-links", rivalToken, nil)
	s.Equal(http.StatusNotFound, code)

	code, _ = s.do(http.MethodGet, path, rivalToken, nil)
	s.Equal(http.StatusNotFound, code)
	code, _ = s.do(http.MethodGet, path, strangerToken, nil)
	s.Equal(http.StatusNotFound, code)

	link := s.issueLink(authorToken, contract, models.ContractRoleBuyer, invitee.Email)

	code, _ = s.do(http.MethodDelete, "/v1/signing-links/"+link.ID.String(), rivalToken, nil)
	s.Equal(http.StatusNotFound, code)

	code, _ = s.do(http.MethodGet, path, inviteeToken, nil)
	s.Equal(http.StatusOK, code)
	code, _ = s.do(http.MethodGet, path, adminToken, nil)
	s.Equal(http.StatusOK, code)

	// The link survived the rival's attempt.
	code, env = s.do(http.MethodGet, "/v1/sign/"+link.Token, "", nil)
	s.Equal(http.StatusOK, code, s.errorCode(env))
}

func (s *APISuite) TestAttachDocumentRequiresFile() {
	_, agentToken := s.createUser(models.UserRoleAgent)
	contract := s.createContract(agentToken)

	// No multipart body at all.
	code, _ := s.do(http.MethodPost, "/v1/contracts/"+contract.ID.String()+"/document", agentToken, nil)
	s.Equal(http.StatusBadRequest, code)
}
