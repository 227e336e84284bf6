package browser

// Page scripts take the [Selectors] as their first argument. Chip texts are
// returned raw and trimmed in Go by [ChipText].
const (
	snapshotJS = `(sel) => {
	const container = document.querySelector(sel.chipContainer);
	if (!container) return [];
	return Array.from(container.querySelectorAll(sel.chip)).map((el, i) => ({
		raw: el.textContent || '',
		position: i,
		selected: el.hasAttribute('selected') ||
			el.getAttribute('aria-selected') === 'true' ||
			el.classList.contains('selected') ||
			(el.style && el.style.backgroundColor !== ''),
	}));
}`

	chipTextJS = `(sel, position) => {
	const container = document.querySelector(sel.chipContainer);
	if (!container) return '';
	const el = container.querySelectorAll(sel.chip)[position];
	if (!el) return '';
	return el.textContent || '';
}`

	clickJS = `(sel, position) => {
	const container = document.querySelector(sel.chipContainer);
	const el = container && container.querySelectorAll(sel.chip)[position];
	if (!el) return false;
	el.click();
	return true;
}`

	hideJS = `(sel) => {
	const container = document.querySelector(sel.chipContainer);
	if (container && container.style) container.style.display = 'none';
	return true;
}`

	// hookJS installs the listeners whose events [drainJS] collects. It is a
	// no-op when the page already has them.
	hookJS = `(sel) => {
	const w = window;
	if (w.__chipperHooked) return true;
	w.__chipperHooked = true;
	w.__chipperEvents = [];
	const push = (ev) => {
		ev.ts = Date.now();
		w.__chipperEvents.push(ev);
	};

	let title = document.title;
	const head = document.querySelector('head');
	if (head) {
		new MutationObserver(() => {
			if (document.title === title) return;
			title = document.title;
			push({ type: 'navigation', url: location.href, title });
		}).observe(head, { subtree: true, childList: true });
	}

	new MutationObserver((mutations) => {
		if (!mutations.some((m) => m.addedNodes.length)) return;
		const present = !!document.querySelector(sel.chip);
		const last = w.__chipperEvents[w.__chipperEvents.length - 1];
		if (last && last.type === 'insertion' && last.present === present) return;
		push({ type: 'insertion', present });
	}).observe(document.body, { childList: true, subtree: true });

	let lastQuery = '';
	let lastQueryAt = 0;
	const search = () => {
		const input = document.querySelector(sel.searchInput);
		const query = input ? (input.value || '').trim() : '';
		if (!query) return;
		const now = Date.now();
		if (query === lastQuery && now - lastQueryAt < 1000) return;
		lastQuery = query;
		lastQueryAt = now;
		push({ type: 'search', query });
	};

	document.addEventListener('submit', (ev) => {
		const form = ev.target;
		if (form && form.matches && form.matches(sel.searchForm)) search();
	}, true);

	document.addEventListener('click', (ev) => {
		const target = ev.target;
		if (!target || !target.closest) return;
		if (target.closest(sel.searchButton)) {
			search();
			return;
		}
		const item = target.closest(sel.item);
		if (!item) return;
		const link = item.querySelector('a[href]');
		const heading = item.querySelector(sel.itemTitle);
		push({
			type: 'click',
			href: link ? link.href : '',
			title: heading ? (heading.textContent || '').trim() : '',
		});
	}, true);

	return true;
}`

	// drainJS returns the buffered events, or null when the hook is gone
	// because the document was replaced.
	drainJS = `() => {
	const w = window;
	if (!w.__chipperHooked) return null;
	const buf = Array.isArray(w.__chipperEvents) ? w.__chipperEvents : [];
	w.__chipperEvents = [];
	return buf;
}`
)
