package llm

// ItemsPrompt asks for item numbers only; the response format is JSON object.
const ItemsPrompt = `Analyze this receipt image and extract the following information:
1. All item/product numbers (SKU, UPC, item codes)
2. The price for each item (if visible)
3. The date and time of the transaction (if visible)

Return a JSON object {"items": [...]} where each item has these properties:
{
    "item_number": "the extracted item number",
    "price": "the price of the item (if available)",
    "date": "the date of the receipt (if available)",
    "time": "the time on the receipt (if available)"
}

Focus specifically on finding product/item numbers which are usually 6-12 digits.
Don't include other types of numbers (like phone numbers, store numbers, register numbers, etc).
If you can't find any item numbers, return {"items": []}.`
