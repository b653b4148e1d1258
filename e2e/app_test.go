//go:build e2e

package e2e

import (
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// E2ETestSuite provides a test suite for end-to-end tests
type E2ETestSuite struct {
	suite.Suite
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	expect  playwright.PlaywrightAssertions
}

// SetupSuite runs once before all tests
func (suite *E2ETestSuite) SetupSuite() {
	pw, err := playwright.Run()
	require.NoError(suite.T(), err, "could not launch playwright")
	suite.pw = pw

	browser, err := pw.Chromium.Launch()
	require.NoError(suite.T(), err, "could not launch chromium")
	suite.browser = browser

	suite.expect = playwright.NewPlaywrightAssertions()
}

// TearDownSuite runs once after all tests
func (suite *E2ETestSuite) TearDownSuite() {
	if suite.browser != nil {
		suite.browser.Close()
	}
	if suite.pw != nil {
		suite.pw.Stop()
	}
}

// SetupTest gives every test a fresh browser context, so no cookies carry over.
func (suite *E2ETestSuite) SetupTest() {
	page, err := suite.browser.NewPage()
	require.NoError(suite.T(), err, "could not create page")
	suite.page = page

	_, err = suite.page.Goto(appURL)
	require.NoError(suite.T(), err, "could not navigate to app")
}

// TearDownTest runs after each test
func (suite *E2ETestSuite) TearDownTest() {
	if suite.page != nil {
		suite.page.Close()
	}
}

func (suite *E2ETestSuite) fill(selector, value string) {
	err := suite.page.Locator(selector).Fill(value)
	require.NoError(suite.T(), err, "failed to fill %s", selector)
}

func (suite *E2ETestSuite) submit() {
	err := suite.page.Locator("form.form button[type=submit]").Click()
	require.NoError(suite.T(), err, "failed to submit form")
}

func (suite *E2ETestSuite) expectFlash(text string) {
	err := suite.expect.Locator(suite.page.Locator(".flash").Filter(playwright.LocatorFilterOptions{
		HasText: text,
	})).ToBeVisible()
	require.NoError(suite.T(), err, "flash %q not shown", text)
}

func (suite *E2ETestSuite) login(email, password string) {
	_, err := suite.page.Goto(appURL + "/login")
	require.NoError(suite.T(), err)

	suite.fill("input[name=email]", email)
	suite.fill("input[name=password]", password)
	suite.submit()

	suite.expectFlash("Welcome, " + email)
}

func (suite *E2ETestSuite) TestCompleteUserFlow() {
	// Register
	_, err := suite.page.Goto(appURL + "/register")
	require.NoError(suite.T(), err)
	suite.fill("input[name=username]", "newbie")
	suite.fill("input[name=email]", "newbie@example.com")
	suite.fill("input[name=password1]", "pw123")
	suite.fill("input[name=password2]", "pw123")
	suite.submit()
	suite.expectFlash("Welcome, newbie!")

	// Registration does not sign in
	err = suite.expect.Locator(suite.page.Locator("a[href='/login']")).ToBeVisible()
	require.NoError(suite.T(), err, "login link should be visible after registering")

	suite.login("newbie@example.com", "pw123")

	// Create a group
	_, err = suite.page.Goto(appURL + "/groups")
	require.NoError(suite.T(), err)
	suite.fill("input[name=group_id]", "G1")
	suite.fill("input[name=description]", "flatmates")
	suite.submit()
	suite.expectFlash("New group ID: G1")

	// Add a bill on the group's page
	suite.fill("input[name=amount]", "12.50")
	suite.fill("input[name=description]", "Lunch Test")
	suite.submit()

	rows := suite.page.Locator("[data-testid=bills] tbody tr")
	err = suite.expect.Locator(rows).ToHaveCount(1)
	require.NoError(suite.T(), err, "bill count mismatch")
	err = suite.expect.Locator(rows.First()).ToContainText("Lunch Test")
	require.NoError(suite.T(), err, "description mismatch")
	err = suite.expect.Locator(rows.First()).ToContainText("12.50")
	require.NoError(suite.T(), err, "amount mismatch")

	// Attach the bill to a second group
	_, err = suite.page.Goto(appURL + "/groups")
	require.NoError(suite.T(), err)
	suite.fill("input[name=group_id]", "G2")
	suite.fill("input[name=description]", "trip")
	_, err = suite.page.Locator("select[name=bills]").SelectOption(playwright.SelectOptionValues{
		Labels: &[]string{"Lunch Test"},
	})
	require.NoError(suite.T(), err, "failed to select bill")
	suite.submit()
	suite.expectFlash("New group ID: G2")

	_, err = suite.page.Goto(appURL + "/groups")
	require.NoError(suite.T(), err)
	err = suite.expect.Locator(suite.page.Locator("[data-testid=groups] li").Filter(playwright.LocatorFilterOptions{
		HasText: "G2",
	})).ToContainText("Lunch Test")
	require.NoError(suite.T(), err, "G2 should list the attached bill")

	// Sign out
	err = suite.page.Locator("[data-testid=sign-out]").Click()
	require.NoError(suite.T(), err)
	suite.expectFlash("See you next time, newbie")
}

func (suite *E2ETestSuite) TestGuardRedirectsToLogin() {
	_, err := suite.page.Goto(appURL + "/groups")
	require.NoError(suite.T(), err)

	err = suite.expect.Page(suite.page).ToHaveURL(appURL + "/login")
	require.NoError(suite.T(), err, "anonymous user should land on /login")
	suite.expectFlash("Please log in to access this page.")
}

func (suite *E2ETestSuite) TestWrongPassword() {
	_, err := suite.page.Goto(appURL + "/login")
	require.NoError(suite.T(), err)
	suite.fill("input[name=email]", adminEmail)
	suite.fill("input[name=password]", "wrong")
	suite.submit()

	suite.expectFlash("User / password do not match!")
}

func (suite *E2ETestSuite) TestAdminPanel() {
	suite.login(adminEmail, adminPassword)

	_, err := suite.page.Goto(appURL + "/admin/user/")
	require.NoError(suite.T(), err)

	err = suite.expect.Locator(suite.page.Locator("[data-testid=admin-user]")).ToContainText(adminEmail)
	require.NoError(suite.T(), err, "seeded admin should be listed")
}

// TestE2ESuite runs the e2e test suite
func TestE2ESuite(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}
