package components

import (
	"fmt"
)

// DefaultItemsPerPage is the default number of items per page
const DefaultItemsPerPage = 50

// GetPaginationInfo calculates pagination information
func GetPaginationInfo(currentPage, totalItems, itemsPerPage int) (startIdx, endIdx, totalPages int) {
	if itemsPerPage <= 0 {
		itemsPerPage = DefaultItemsPerPage
	}
	if currentPage < 1 {
		currentPage = 1
	}

	totalPages = (totalItems + itemsPerPage - 1) / itemsPerPage
	if totalPages < 1 {
		totalPages = 1
	}

	if currentPage > totalPages {
		currentPage = totalPages
	}

	startIdx = (currentPage - 1) * itemsPerPage
	endIdx = startIdx + itemsPerPage
	if endIdx > totalItems {
		endIdx = totalItems
	}

	return startIdx, endIdx, totalPages
}

// Pagination generates Bootstrap pagination HTML
func Pagination(currentPage, totalItems, itemsPerPage int, baseURL string) string {
	if itemsPerPage <= 0 {
		itemsPerPage = DefaultItemsPerPage
	}

	_, _, totalPages := GetPaginationInfo(currentPage, totalItems, itemsPerPage)

	if totalPages <= 1 {
		return "" // No pagination needed
	}

	pageURL := func(page int) string {
		return fmt.Sprintf("%s?page=%d", baseURL, page)
	}

	html := `<nav aria-label="Page navigation" class="mt-4">
    <ul class="pagination justify-content-center flex-wrap">`

	// Previous button
	if currentPage > 1 {
		html += fmt.Sprintf(`
        <li class="page-item">
            <a class="page-link" href="%s" aria-label="Previous">
                <span aria-hidden="true">&laquo;</span>
            </a>
        </li>`, pageURL(currentPage-1))
	} else {
		html += `
        <li class="page-item disabled">
            <span class="page-link">&laquo;</span>
        </li>`
	}

	for i := 1; i <= totalPages; i++ {
		if i == currentPage {
			html += fmt.Sprintf(`
        <li class="page-item active">
            <span class="page-link">%d</span>
        </li>`, i)
		} else {
			html += fmt.Sprintf(`
        <li class="page-item">
            <a class="page-link" href="%s">%d</a>
        </li>`, pageURL(i), i)
		}
	}

	// Next button
	if currentPage < totalPages {
		html += fmt.Sprintf(`
        <li class="page-item">
            <a class="page-link" href="%s" aria-label="Next">
                <span aria-hidden="true">&raquo;</span>
            </a>
        </li>`, pageURL(currentPage+1))
	} else {
		html += `
        <li class="page-item disabled">
            <span class="page-link">&raquo;</span>
        </li>`
	}

	html += `
    </ul>
</nav>`

	startItem := (currentPage-1)*itemsPerPage + 1
	endItem := startItem + itemsPerPage - 1
	if endItem > totalItems {
		endItem = totalItems
	}

	html += fmt.Sprintf(`
<div class="text-center text-muted mb-3">
    <small>Showing %d-%d of %d items (Page %d of %d)</small>
</div>`, startItem, endItem, totalItems, currentPage, totalPages)

	return html
}
