package browser

// domHelpers are shared by every snapshot script
const domHelpers = `
  const visible = (el) => {
    const style = window.getComputedStyle(el);
    if (!style || style.visibility === "hidden" || style.display === "none") return false;
    if (el.type === "hidden") return false;
    const rect = el.getBoundingClientRect();
    return rect.width > 2 && rect.height > 2;
  };
  const toText = (value, max) => String(value || "").trim().replace(/\s+/g, " ").slice(0, max || 120);
  const cssEscape = (value) => {
    if (typeof CSS !== "undefined" && typeof CSS.escape === "function") return CSS.escape(String(value));
    return String(value).replace(/["\\]/g, "\\$&");
  };
  const selectorSegment = (el) => {
    const tag = (el.tagName || "div").toLowerCase();
    if (el.id) return tag + "#" + cssEscape(el.id);
    let index = 1;
    let sibling = el;
    while ((sibling = sibling.previousElementSibling)) {
      if ((sibling.tagName || "").toLowerCase() === tag) index++;
    }
    return tag + ":nth-of-type(" + index + ")";
  };
  const selectorFor = (el) => {
    if (el.id) {
      const byID = "#" + cssEscape(el.id);
      if (document.querySelectorAll(byID).length === 1) return byID;
    }
    if (el.name) {
      const byName = el.tagName.toLowerCase() + "[name=\"" + cssEscape(el.name) + "\"]";
      if (document.querySelectorAll(byName).length === 1) return byName;
    }
    const parts = [];
    let current = el;
    while (current && current.nodeType === 1 && parts.length < 8) {
      parts.unshift(selectorSegment(current));
      const selector = parts.join(" > ");
      if (document.querySelectorAll(selector).length === 1) return selector;
      if (current.id) break;
      current = current.parentElement;
    }
    return parts.join(" > ");
  };
  const labelFor = (el) => {
    if (el.labels && el.labels.length > 0) return toText(el.labels[0].innerText);
    if (el.id) {
      const label = document.querySelector("label[for=\"" + cssEscape(el.id) + "\"]");
      if (label) return toText(label.innerText);
    }
    const wrapping = el.closest("label");
    if (wrapping) return toText(wrapping.innerText);
    return toText(el.getAttribute("aria-label"));
  };
`

// elementsScript takes the option cap and returns every form control
const elementsScript = `(maxOptions) => {` + domHelpers + `
  const nodes = [];
  const all = document.querySelectorAll("input, select, textarea, button");
  all.forEach((el, index) => {
    const tag = el.tagName.toLowerCase();
    const options = [];
    if (tag === "select") {
      for (const opt of Array.from(el.options).slice(0, maxOptions)) {
        options.push({ text: toText(opt.text), value: String(opt.value || "") });
      }
    }
    nodes.push({
      index,
      tag,
      type: toText(el.getAttribute("type") || (tag === "select" ? "select" : "")),
      name: toText(el.name),
      id: toText(el.id),
      class: toText(el.className),
      placeholder: toText(el.placeholder),
      label: labelFor(el),
      nearby_text: el.parentElement ? toText(el.parentElement.innerText, 100) : "",
      text: toText(el.innerText || el.value),
      value: String(el.value || ""),
      selector: selectorFor(el),
      options,
      visible: visible(el),
      required: !!el.required
    });
  });
  return nodes;
}`

const linksScript = `() => {` + domHelpers + `
  const links = [];
  for (const a of document.querySelectorAll("a")) {
    if (!visible(a)) continue;
    links.push({ text: toText(a.innerText), href: String(a.href || ""), selector: selectorFor(a) });
  }
  return links;
}`

// queryScript takes {selector, limit}
const queryScript = `(args) => {` + domHelpers + `
  return Array.from(document.querySelectorAll(args.selector)).slice(0, args.limit).map((el) => ({
    tag: el.tagName.toLowerCase(),
    text: String(el.innerText || el.value || "").trim().slice(0, 1000),
    class: toText(el.className),
    selector: selectorFor(el)
  }));
}`
